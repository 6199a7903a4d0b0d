package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"SetupScan/internal/domain/models"
	applogger "SetupScan/pkg/logger"
	"SetupScan/pkg/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scan_runs (
        scan_id      TEXT PRIMARY KEY,
        started_at   TIMESTAMPTZ NOT NULL,
        finished_at  TIMESTAMPTZ NOT NULL,
        duration_ms  BIGINT NOT NULL,
        result_count INTEGER NOT NULL,
        file         TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS scan_results (
        scan_id      TEXT NOT NULL REFERENCES scan_runs(scan_id) ON DELETE CASCADE,
        rank         INTEGER NOT NULL,
        symbol       TEXT NOT NULL,
        setup        TEXT NOT NULL,
        confidence   DOUBLE PRECISION NOT NULL,
        entry_signal BOOLEAN NOT NULL,
        payload      JSONB NOT NULL,
        scanned_at   TIMESTAMPTZ NOT NULL,
        archived_at  TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (scan_id, rank)
    )`,
	`CREATE INDEX IF NOT EXISTS scan_results_symbol_scanned_idx ON scan_results (symbol, scanned_at DESC)`,
}

var resultColumns = []string{
	"scan_id", "rank", "symbol", "setup", "confidence", "entry_signal", "payload", "scanned_at", "archived_at",
}

// PostgresArchive keeps scan runs and their records in two tables.
type PostgresArchive struct {
	pool *pgxpool.Pool
	l    *applogger.Logger
}

func NewPostgresArchive(pool *pgxpool.Pool, l *applogger.Logger) *PostgresArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	return &PostgresArchive{pool: pool, l: l}
}

func (a *PostgresArchive) Init(ctx context.Context) error {
	return postgres.Migrate(ctx, a.pool, postgresSchema)
}

// StoreScan writes the run and copies its records in one transaction.
func (a *PostgresArchive) StoreScan(ctx context.Context, summary models.ScanSummary, rs models.ResultSet) error {
	start := time.Now()
	rows, err := resultRows(summary, rs, time.Now().UTC())
	if err != nil {
		return err
	}

	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO scan_runs (scan_id, started_at, finished_at, duration_ms, result_count, file)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (scan_id) DO NOTHING`,
		summary.ScanID, summary.StartedAt, summary.FinishedAt, summary.Duration.Milliseconds(), len(rs), summary.File,
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"scan_results"}, resultColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy scan results: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copy scan results: wrote %d of %d rows", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	a.l.Info("postgres store_scan ok",
		applogger.String("scan_id", summary.ScanID),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func resultRows(summary models.ScanSummary, rs models.ResultSet, now time.Time) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(rs))
	for i, r := range rs {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.Symbol, err)
		}
		rows = append(rows, []interface{}{
			summary.ScanID, i + 1, r.Symbol, string(r.Setup), r.Confidence, r.EntrySignal,
			string(payload), summary.StartedAt.UTC(), now,
		})
	}
	return rows, nil
}

// History returns archived records, newest scans first and by rank within a scan.
func (a *PostgresArchive) History(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedResult, error) {
	where, args := historyWhere(q, func(n int) string { return "$" + strconv.Itoa(n) })
	query := fmt.Sprintf(
		"SELECT scan_id, rank, payload::text, archived_at FROM scan_results%s ORDER BY scanned_at DESC, rank ASC LIMIT %d",
		where, historyLimit(q))

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		a.l.Error("postgres history query error", applogger.Error(err))
		return nil, fmt.Errorf("postgres history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ArchivedResult, 0, historyLimit(q))
	for rows.Next() {
		var (
			row     archivedRow
			payload string
		)
		if err := rows.Scan(&row.scanID, &row.rank, &payload, &row.archivedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		row.payload = []byte(payload)
		res, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (a *PostgresArchive) Health(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
