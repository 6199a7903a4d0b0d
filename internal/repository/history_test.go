package repository

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryWhere(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	dollar := func(n int) string { return "$" + strconv.Itoa(n) }
	qmark := func(int) string { return "?" }

	where, args := historyWhere(models.HistoryQuery{}, dollar)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = historyWhere(models.HistoryQuery{Symbol: "AAPL", From: from, To: to}, dollar)
	assert.Equal(t, " WHERE symbol = $1 AND scanned_at >= $2 AND scanned_at <= $3", where)
	assert.Equal(t, []interface{}{"AAPL", from, to}, args)

	where, args = historyWhere(models.HistoryQuery{To: to}, qmark)
	assert.Equal(t, " WHERE scanned_at <= ?", where)
	assert.Equal(t, []interface{}{to}, args)
}

func TestHistoryLimit(t *testing.T) {
	assert.Equal(t, 100, historyLimit(models.HistoryQuery{}))
	assert.Equal(t, 7, historyLimit(models.HistoryQuery{Limit: 7}))
}

func TestArchivedRowDecode(t *testing.T) {
	payload, err := json.Marshal(models.AnalysisRecord{Symbol: "MSFT", Confidence: 72.5})
	require.NoError(t, err)
	at := time.Now().UTC()

	got, err := archivedRow{scanID: "s1", rank: 2, payload: payload, archivedAt: at}.decode()
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ScanID)
	assert.Equal(t, 2, got.Rank)
	assert.Equal(t, "MSFT", got.Record.Symbol)
	assert.Equal(t, at, got.ArchivedAt)

	_, err = archivedRow{scanID: "s1", payload: []byte("{")}.decode()
	assert.Error(t, err)
}

func TestResultRowsFollowRank(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := started.Add(time.Minute)
	rs := models.ResultSet{
		{Symbol: "AAA", Setup: models.Bullish, Confidence: 90, EntrySignal: true},
		{Symbol: "BBB", Setup: models.Bearish, Confidence: 70},
	}

	rows, err := resultRows(models.ScanSummary{ScanID: "s1", StartedAt: started}, rs, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(resultColumns))
	assert.Equal(t, []interface{}{"s1", 1, "AAA", "bullish", 90.0, true}, rows[0][:6])
	assert.Equal(t, 2, rows[1][1])
	assert.Equal(t, started, rows[1][7])
	assert.Equal(t, now, rows[1][8])
}

func TestEntryFlag(t *testing.T) {
	assert.Equal(t, uint8(1), entryFlag(true))
	assert.Equal(t, uint8(0), entryFlag(false))
}
