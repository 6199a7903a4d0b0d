package usecase

import (
	"sort"

	"SetupScan/internal/domain/models"
)

// Passes reports whether r satisfies every criterion. Bounds are inclusive.
func Passes(r models.AnalysisRecord, c models.FilterCriteria) bool {
	mc := r.MarketContext
	if !c.AllowsTrend(mc.Trend) {
		return false
	}
	if !c.PCR.Contains(mc.PCR) || !c.RSI.Contains(mc.RSI) || !c.StochRSI.Contains(mc.StochRSI) {
		return false
	}
	return r.Confidence >= c.MinConfidence
}

// FilterRecords keeps the records that pass c, in input order.
func FilterRecords(rs models.ResultSet, c models.FilterCriteria) models.ResultSet {
	out := make(models.ResultSet, 0, len(rs))
	for _, r := range rs {
		if Passes(r, c) {
			out = append(out, r)
		}
	}
	return out
}

// Rank orders records by confidence descending, then symbol ascending. The input is not modified.
func Rank(rs models.ResultSet) models.ResultSet {
	out := append(make(models.ResultSet, 0, len(rs)), rs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
