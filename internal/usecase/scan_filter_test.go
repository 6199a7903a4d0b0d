package usecase

import (
	"testing"

	"SetupScan/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func record(sym string, conf float64, trend models.TrendLabel) models.AnalysisRecord {
	return models.AnalysisRecord{
		Symbol:     sym,
		Setup:      trend,
		Confidence: conf,
		MarketContext: models.MarketContext{
			Trend:    trend,
			PCR:      1,
			RSI:      55,
			StochRSI: 40,
		},
	}
}

func TestPasses(t *testing.T) {
	base := models.DefaultFilterCriteria()
	bullishOnly := base
	bullishOnly.Trends = []models.TrendLabel{models.Bullish}
	tight := base
	tight.RSI = models.Range{Min: 55, Max: 55}
	narrowPCR := base
	narrowPCR.PCR = models.Range{Min: 1.2, Max: 2}
	stoch := base
	stoch.StochRSI = models.Range{Min: 0, Max: 39.9}

	tests := []struct {
		name string
		rec  models.AnalysisRecord
		c    models.FilterCriteria
		want bool
	}{
		{"all defaults", record("AAA", 80, models.Bullish), base, true},
		{"confidence equal to minimum", record("AAA", 60, models.Bullish), base, true},
		{"confidence below minimum", record("AAA", 59.9, models.Bullish), base, false},
		{"trend not whitelisted", record("AAA", 80, models.Bearish), bullishOnly, false},
		{"inclusive degenerate range", record("AAA", 80, models.Neutral), tight, true},
		{"pcr out of range", record("AAA", 80, models.Bullish), narrowPCR, false},
		{"stoch rsi above max", record("AAA", 80, models.Bullish), stoch, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Passes(tt.rec, tt.c))
			assert.Equal(t, tt.want, Passes(tt.rec, tt.c), "same input, same answer")
		})
	}
}

func TestPassesEmptyWhitelistRejectsAll(t *testing.T) {
	c := models.DefaultFilterCriteria()
	c.Trends = nil
	assert.False(t, Passes(record("AAA", 99, models.Bullish), c))
}

func TestFilterRecordsKeepsOrder(t *testing.T) {
	c := models.DefaultFilterCriteria()
	in := models.ResultSet{
		record("CCC", 70, models.Bullish),
		record("AAA", 10, models.Bullish),
		record("BBB", 90, models.Bearish),
	}
	out := FilterRecords(in, c)
	assert.Equal(t, []string{"CCC", "BBB"}, symbolsOf(out))
}

func TestRankOrdersByConfidenceThenSymbol(t *testing.T) {
	in := models.ResultSet{
		record("MSFT", 70, models.Bullish),
		record("TSLA", 90, models.Bearish),
		record("AAPL", 70, models.Neutral),
		record("NVDA", 85, models.Bullish),
		record("AMZN", 70, models.Bullish),
	}
	out := Rank(in)

	assert.Equal(t, []string{"TSLA", "NVDA", "AAPL", "AMZN", "MSFT"}, symbolsOf(out))
	assert.Equal(t, "MSFT", in[0].Symbol, "input untouched")
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Confidence, out[i].Confidence)
	}
}

func TestRankEmpty(t *testing.T) {
	out := Rank(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func symbolsOf(rs models.ResultSet) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Symbol)
	}
	return out
}
