package repository

import (
	"context"

	"SetupScan/internal/domain/models"
)

// ResultWriter persists the ranked result set of a scan under dir and returns its location.
type ResultWriter interface {
	Write(ctx context.Context, dir string, results models.ResultSet) (string, error)
}

// Archive keeps scan results for later history queries.
type Archive interface {
	Init(ctx context.Context) error
	StoreScan(ctx context.Context, summary models.ScanSummary, results models.ResultSet) error
	History(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedResult, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits scan events to downstream consumers.
type Publisher interface {
	PublishScan(ctx context.Context, summary models.ScanSummary, results models.ResultSet) error
	Close() error
}

// Metrics records scan and request telemetry.
type Metrics interface {
	RecordScan(result string, seconds float64, resultCount int)
	RecordSymbol(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
