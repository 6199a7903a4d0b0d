package models

// Query structs for HTTP endpoints, bound and validated by pkg/http.

type ResultsRequest struct {
	Setup string `query:"setup" json:"setup" validate:"omitempty,oneof=bullish bearish neutral"`
	Entry bool   `query:"entry" json:"entry"`
}

type AnalyzeRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=16"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=16"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}
