package models

import (
	"strings"
	"time"
)

// TrendLabel is the directional bias of a market context or a setup.
type TrendLabel string

const (
	Bullish TrendLabel = "bullish"
	Bearish TrendLabel = "bearish"
	Neutral TrendLabel = "neutral"
)

// TrendLabels lists every valid label in display order.
var TrendLabels = []TrendLabel{Bullish, Bearish, Neutral}

// ParseTrendLabel normalizes s and reports whether it names a known label.
func ParseTrendLabel(s string) (TrendLabel, bool) {
	l := TrendLabel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Bullish, Bearish, Neutral:
		return l, true
	}
	return "", false
}

// MarketContext summarizes trend, sentiment and momentum for one symbol.
type MarketContext struct {
	Trend     TrendLabel `json:"trend"`
	Sentiment TrendLabel `json:"sentiment"`
	Momentum  TrendLabel `json:"momentum"`
	PCR       float64    `json:"pcr"`
	RSI       float64    `json:"rsi"`
	StochRSI  float64    `json:"stoch_rsi"`
}

// KeyLevels holds price ladders derived from options positioning or price pivots.
type KeyLevels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
	MaxPain    float64   `json:"max_pain"`
	HighGamma  []float64 `json:"high_gamma"`
}

// AnalysisRecord is the outcome of analyzing one symbol. It is not mutated after creation.
type AnalysisRecord struct {
	Symbol        string        `json:"symbol"`
	Timestamp     time.Time     `json:"timestamp"`
	Setup         TrendLabel    `json:"setup"`
	Weak          bool          `json:"weak"`
	Confidence    float64       `json:"confidence"`
	Reasons       []string      `json:"reasons"`
	EntrySignal   bool          `json:"entry_signal"`
	EntryStrength float64       `json:"entry_strength"`
	EntryReasons  []string      `json:"entry_reasons"`
	ExitSignal    bool          `json:"exit_signal"`
	ExitStrength  float64       `json:"exit_strength"`
	ExitReasons   []string      `json:"exit_reasons"`
	PositionSize  float64       `json:"position_size"`
	StopLoss      float64       `json:"stop_loss"`
	RiskReward    float64       `json:"risk_reward"`
	TargetPrice   float64       `json:"target_price"`
	CurrentPrice  float64       `json:"current_price"`
	MarketContext MarketContext `json:"market_context"`
	KeyLevels     KeyLevels     `json:"key_levels"`
}

// ResultSet is a ranked sequence of records produced by one scan.
type ResultSet []AnalysisRecord

// BySetup returns the records whose setup label equals l.
func (rs ResultSet) BySetup(l TrendLabel) ResultSet {
	out := make(ResultSet, 0, len(rs))
	for _, r := range rs {
		if r.Setup == l {
			out = append(out, r)
		}
	}
	return out
}

// WithEntrySignal returns the records carrying an entry signal.
func (rs ResultSet) WithEntrySignal() ResultSet {
	out := make(ResultSet, 0, len(rs))
	for _, r := range rs {
		if r.EntrySignal {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot alias internal slices.
func (rs ResultSet) Clone() ResultSet {
	if rs == nil {
		return nil
	}
	out := make(ResultSet, len(rs))
	for i, r := range rs {
		out[i] = r.clone()
	}
	return out
}

func (r AnalysisRecord) clone() AnalysisRecord {
	c := r
	c.Reasons = cloneStrings(r.Reasons)
	c.EntryReasons = cloneStrings(r.EntryReasons)
	c.ExitReasons = cloneStrings(r.ExitReasons)
	c.KeyLevels.Support = cloneFloats(r.KeyLevels.Support)
	c.KeyLevels.Resistance = cloneFloats(r.KeyLevels.Resistance)
	c.KeyLevels.HighGamma = cloneFloats(r.KeyLevels.HighGamma)
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func cloneFloats(f []float64) []float64 {
	if f == nil {
		return nil
	}
	return append(make([]float64, 0, len(f)), f...)
}
