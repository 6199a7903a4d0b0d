package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SetupScan/internal/domain/models"
	pkgch "SetupScan/pkg/clickhouse"
	applogger "SetupScan/pkg/logger"
)

// ClickHouseArchive stores scan results in a MergeTree table, one row per ranked record.
type ClickHouseArchive struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseArchive(ch *pkgch.Client, table string, l *applogger.Logger) *ClickHouseArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseArchive{
		ch:    ch,
		db:    ch.DB(),
		table: ch.Database() + "." + table,
		l:     l,
	}
}

func (a *ClickHouseArchive) schema() []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + a.ch.Database(),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            scan_id      String,
            rank         UInt32,
            symbol       LowCardinality(String),
            setup        LowCardinality(String),
            confidence   Float64,
            entry_signal UInt8,
            payload      String,
            scanned_at   DateTime64(3, 'UTC'),
            archived_at  DateTime64(3, 'UTC')
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(scanned_at)
        ORDER BY (symbol, scanned_at, rank)`, a.table),
	}
}

// Init creates the archive table if it does not exist.
func (a *ClickHouseArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, a.schema())
}

// StoreScan inserts every record of rs in one batch.
func (a *ClickHouseArchive) StoreScan(ctx context.Context, summary models.ScanSummary, rs models.ResultSet) error {
	if len(rs) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clickhouse begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (scan_id, rank, symbol, setup, confidence, entry_signal, payload, scanned_at, archived_at)", a.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clickhouse prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, r := range rs {
		payload, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode record %s: %w", r.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx,
			summary.ScanID,
			uint32(i+1),
			r.Symbol,
			string(r.Setup),
			r.Confidence,
			entryFlag(r.EntrySignal),
			string(payload),
			summary.StartedAt.UTC(),
			now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		a.l.Error("clickhouse store_scan commit error",
			applogger.String("table", a.table),
			applogger.String("scan_id", summary.ScanID),
			applogger.Error(err),
		)
		return fmt.Errorf("clickhouse commit: %w", err)
	}
	a.l.Info("clickhouse store_scan ok",
		applogger.String("table", a.table),
		applogger.String("scan_id", summary.ScanID),
		applogger.Int("rows", len(rs)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// History returns archived records, newest scans first and by rank within a scan.
func (a *ClickHouseArchive) History(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedResult, error) {
	where, args := historyWhere(q, func(int) string { return "?" })
	query := fmt.Sprintf(
		"SELECT scan_id, rank, payload, archived_at FROM %s%s ORDER BY scanned_at DESC, rank ASC LIMIT %d",
		a.table, where, historyLimit(q))

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		a.l.Error("clickhouse history query error", applogger.String("table", a.table), applogger.Error(err))
		return nil, fmt.Errorf("clickhouse history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ArchivedResult, 0, historyLimit(q))
	for rows.Next() {
		var (
			row     archivedRow
			rank    uint32
			payload string
		)
		if err := rows.Scan(&row.scanID, &rank, &payload, &row.archivedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		row.rank = int(rank)
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

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.ch.Health(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return a.ch.Close()
}
