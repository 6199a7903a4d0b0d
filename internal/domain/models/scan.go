package models

import "time"

// DefaultSymbols is the universe used when neither a list nor a symbols file is available.
var DefaultSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA"}

// ScanConfig is fixed for the duration of one scan.
type ScanConfig struct {
	MaxWorkers  int
	Filters     FilterCriteria
	OutputDir   string
	Symbols     []string
	SymbolsFile string
}

// ScanSummary describes a finished scan for archives and event consumers.
type ScanSummary struct {
	ScanID      string        `json:"scan_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Duration    time.Duration `json:"duration_ns"`
	ResultCount int           `json:"result_count"`
	File        string        `json:"file,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// ArchivedResult is one record persisted to the history archive.
type ArchivedResult struct {
	ScanID     string         `json:"scan_id"`
	Rank       int            `json:"rank"`
	Record     AnalysisRecord `json:"record"`
	ArchivedAt time.Time      `json:"archived_at"`
}

// HistoryQuery selects archived results.
type HistoryQuery struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}
