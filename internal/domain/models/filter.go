package models

import (
	"fmt"
	"math"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the inclusive range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FilterCriteria selects which analysis records survive a scan.
type FilterCriteria struct {
	Trends        []TrendLabel `json:"trend"`
	PCR           Range        `json:"pcr"`
	RSI           Range        `json:"rsi"`
	StochRSI      Range        `json:"stoch_rsi"`
	MinConfidence float64      `json:"min_confidence"`
}

// DefaultFilterCriteria admits every trend and the full indicator ranges.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		Trends:        append([]TrendLabel(nil), TrendLabels...),
		PCR:           Range{Min: 0, Max: 2},
		RSI:           Range{Min: 0, Max: 100},
		StochRSI:      Range{Min: 0, Max: 100},
		MinConfidence: 60,
	}
}

// AllowsTrend reports whether t is whitelisted.
func (c FilterCriteria) AllowsTrend(t TrendLabel) bool {
	for _, w := range c.Trends {
		if w == t {
			return true
		}
	}
	return false
}

// Validate rejects inverted ranges and unknown trend labels.
func (c FilterCriteria) Validate() error {
	for _, t := range c.Trends {
		if _, ok := ParseTrendLabel(string(t)); !ok {
			return &ConfigError{Field: "trend", Reason: fmt.Sprintf("unknown trend %q", t)}
		}
	}
	ranges := []struct {
		name string
		r    Range
	}{
		{"pcr", c.PCR},
		{"rsi", c.RSI},
		{"stoch_rsi", c.StochRSI},
	}
	for _, x := range ranges {
		if math.IsNaN(x.r.Min) || math.IsNaN(x.r.Max) {
			return &ConfigError{Field: x.name, Reason: "range bound is not a number"}
		}
		if x.r.Min > x.r.Max {
			return &ConfigError{Field: x.name, Reason: fmt.Sprintf("min %g exceeds max %g", x.r.Min, x.r.Max)}
		}
	}
	if math.IsNaN(c.MinConfidence) {
		return &ConfigError{Field: "min_confidence", Reason: "not a number"}
	}
	return nil
}

// FilterOverrides is the user-supplied partial filter payload. Nil fields keep the base value.
type FilterOverrides struct {
	Trend         []string `json:"trend" validate:"omitempty,dive,oneof=bullish bearish neutral"`
	PCRMin        *float64 `json:"pcr_min" validate:"omitempty,gte=0"`
	PCRMax        *float64 `json:"pcr_max" validate:"omitempty,gte=0"`
	RSIMin        *float64 `json:"rsi_min" validate:"omitempty,gte=0,lte=100"`
	RSIMax        *float64 `json:"rsi_max" validate:"omitempty,gte=0,lte=100"`
	StochRSIMin   *float64 `json:"stoch_rsi_min" validate:"omitempty,gte=0,lte=100"`
	StochRSIMax   *float64 `json:"stoch_rsi_max" validate:"omitempty,gte=0,lte=100"`
	MinConfidence *float64 `json:"min_confidence"`
}

// MergeFilters applies o over base and validates the result. base is not modified.
func MergeFilters(base FilterCriteria, o FilterOverrides) (FilterCriteria, error) {
	out := base
	out.Trends = append([]TrendLabel(nil), base.Trends...)

	if o.Trend != nil {
		out.Trends = make([]TrendLabel, 0, len(o.Trend))
		for _, s := range o.Trend {
			l, ok := ParseTrendLabel(s)
			if !ok {
				return FilterCriteria{}, &ConfigError{Field: "trend", Reason: fmt.Sprintf("unknown trend %q", s)}
			}
			out.Trends = append(out.Trends, l)
		}
	}
	setf(&out.PCR.Min, o.PCRMin)
	setf(&out.PCR.Max, o.PCRMax)
	setf(&out.RSI.Min, o.RSIMin)
	setf(&out.RSI.Max, o.RSIMax)
	setf(&out.StochRSI.Min, o.StochRSIMin)
	setf(&out.StochRSI.Max, o.StochRSIMax)
	setf(&out.MinConfidence, o.MinConfidence)

	if err := out.Validate(); err != nil {
		return FilterCriteria{}, err
	}
	return out, nil
}

func setf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
