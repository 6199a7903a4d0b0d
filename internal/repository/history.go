package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"SetupScan/internal/domain/models"
)

const defaultHistoryLimit = 100

// historyWhere builds the WHERE clause and arguments for q. ph renders the n-th placeholder (1-based).
func historyWhere(q models.HistoryQuery, ph func(n int) string) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}
	if q.Symbol != "" {
		add("symbol = %s", q.Symbol)
	}
	if !q.From.IsZero() {
		add("scanned_at >= %s", q.From.UTC())
	}
	if !q.To.IsZero() {
		add("scanned_at <= %s", q.To.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func historyLimit(q models.HistoryQuery) int {
	if q.Limit <= 0 {
		return defaultHistoryLimit
	}
	return q.Limit
}

// archivedRow is the flat projection shared by the SQL archives.
type archivedRow struct {
	scanID     string
	rank       int
	payload    []byte
	archivedAt time.Time
}

func (r archivedRow) decode() (models.ArchivedResult, error) {
	var rec models.AnalysisRecord
	if err := json.Unmarshal(r.payload, &rec); err != nil {
		return models.ArchivedResult{}, fmt.Errorf("decode archived record %s/%d: %w", r.scanID, r.rank, err)
	}
	return models.ArchivedResult{
		ScanID:     r.scanID,
		Rank:       r.rank,
		Record:     rec,
		ArchivedAt: r.archivedAt,
	}, nil
}

func entryFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
