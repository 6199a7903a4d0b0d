package models

// ProgressSnapshot is an immutable copy of the scan status.
type ProgressSnapshot struct {
	Progress      int        `json:"progress"`
	Message       string     `json:"message"`
	IsScanning    bool       `json:"is_scanning"`
	CurrentSymbol *string    `json:"current_symbol"`
	Errors        []string   `json:"errors"`
	Results       *ResultSet `json:"results,omitempty"`
}

// ProgressEvent reports an intermediate step of a scan.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// ResultEvent terminates a successful session.
type ResultEvent struct {
	Success bool      `json:"success"`
	Results ResultSet `json:"results"`
}

// ErrorEvent terminates a failed session.
type ErrorEvent struct {
	Error string `json:"error"`
}
