package service

import (
	"context"

	"SetupScan/internal/domain/models"
)

// Analyzer produces an analysis record for one symbol. Missing market data is
// reported as an error wrapping models.ErrUnavailable.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error)
}

// AnalyzerFunc adapts a plain function to Analyzer.
type AnalyzerFunc func(ctx context.Context, symbol string) (*models.AnalysisRecord, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	return f(ctx, symbol)
}
