package analysis

import (
	"fmt"
	"math"

	"SetupScan/internal/domain/models"
)

const validConfidence = 60

type scorecard struct {
	label   models.TrendLabel
	points  float64
	max     float64
	reasons []string
}

// add counts a factor worth up to max points. A non-empty reason is recorded
// whenever points were awarded.
func (s *scorecard) add(max, points float64, reason string) {
	s.max += max
	if points > 0 {
		s.points += points
		s.reasons = append(s.reasons, reason)
	}
}

func (s *scorecard) confidence() float64 {
	if s.max == 0 {
		return 0
	}
	return s.points / s.max * 100
}

func (s *scorecard) valid() bool { return s.confidence() > validConfidence }

// setupResult is the chosen setup with the inputs later stages need.
type setupResult struct {
	Label      models.TrendLabel
	Weak       bool
	Confidence float64
	Reasons    []string
}

// determineSetup scores all three setups and keeps the best by validity, then
// confidence. Ties keep the bullish, bearish, neutral order.
func determineSetup(mc marketContext, kl models.KeyLevels) setupResult {
	cards := []*scorecard{
		scoreBullish(mc, kl),
		scoreBearish(mc, kl),
		scoreNeutral(mc, kl),
	}
	best := cards[0]
	for _, c := range cards[1:] {
		if better(c, best) {
			best = c
		}
	}
	reasons := best.reasons
	if reasons == nil {
		reasons = []string{}
	}
	return setupResult{
		Label:      best.label,
		Weak:       !best.valid(),
		Confidence: best.confidence(),
		Reasons:    reasons,
	}
}

func better(a, b *scorecard) bool {
	if a.valid() != b.valid() {
		return a.valid()
	}
	return a.confidence() > b.confidence()
}

func scoreBullish(mc marketContext, kl models.KeyLevels) *scorecard {
	s := &scorecard{label: models.Bullish}

	switch mc.Trend {
	case models.Bullish:
		s.add(3, 3, "Strong bullish trend (EMA alignment)")
	case models.Neutral:
		s.add(3, 1, "Neutral trend")
	default:
		s.add(3, 0, "")
	}

	if mc.Options.Available {
		switch {
		case mc.PCR < 0.8:
			s.add(2, 2, fmt.Sprintf("Bullish sentiment (PCR: %.2f)", mc.PCR))
		case mc.PCR < 1.0:
			s.add(2, 1, fmt.Sprintf("Neutral sentiment (PCR: %.2f)", mc.PCR))
		default:
			s.add(2, 0, "")
		}
	}

	switch {
	case mc.RSI >= 55 && mc.RSI <= 80:
		s.add(2, 2, fmt.Sprintf("Bullish momentum (RSI: %.2f)", mc.RSI))
	case mc.RSI >= 45 && mc.RSI < 55:
		s.add(2, 1, fmt.Sprintf("Neutral momentum (RSI: %.2f)", mc.RSI))
	default:
		s.add(2, 0, "")
	}

	switch {
	case mc.StochRSI > 60:
		s.add(2, 2, fmt.Sprintf("Bullish Stochastic RSI: %.2f", mc.StochRSI))
	case mc.StochRSI > 40:
		s.add(2, 1, fmt.Sprintf("Neutral Stochastic RSI: %.2f", mc.StochRSI))
	default:
		s.add(2, 0, "")
	}

	switch {
	case len(kl.Support) > 0 && mc.Price <= kl.Support[0]*1.02:
		s.add(3, 3, fmt.Sprintf("Price near support (%.2f)", kl.Support[0]))
	case len(kl.Support) > 0 && mc.Price <= kl.Support[0]*1.05:
		s.add(3, 1, fmt.Sprintf("Price approaching support (%.2f)", kl.Support[0]))
	default:
		s.add(3, 0, "")
	}

	if mc.Options.Available {
		if mc.Options.GEX > 500 {
			s.add(2, 2, "Positive GEX indicating bullish stability")
		} else {
			s.add(2, 0, "")
		}
	}
	return s
}

func scoreBearish(mc marketContext, kl models.KeyLevels) *scorecard {
	s := &scorecard{label: models.Bearish}

	switch mc.Trend {
	case models.Bearish:
		s.add(3, 3, "Strong bearish trend (EMA alignment)")
	case models.Neutral:
		s.add(3, 1, "Neutral trend")
	default:
		s.add(3, 0, "")
	}

	if mc.Options.Available {
		switch {
		case mc.PCR > 1.2:
			s.add(2, 2, fmt.Sprintf("Bearish sentiment (PCR: %.2f)", mc.PCR))
		case mc.PCR > 1.0:
			s.add(2, 1, fmt.Sprintf("Neutral sentiment (PCR: %.2f)", mc.PCR))
		default:
			s.add(2, 0, "")
		}
	}

	switch {
	case mc.RSI >= 20 && mc.RSI <= 45:
		s.add(2, 2, fmt.Sprintf("Bearish momentum (RSI: %.2f)", mc.RSI))
	case mc.RSI > 45 && mc.RSI <= 55:
		s.add(2, 1, fmt.Sprintf("Neutral momentum (RSI: %.2f)", mc.RSI))
	default:
		s.add(2, 0, "")
	}

	switch {
	case mc.StochRSI < 40:
		s.add(2, 2, fmt.Sprintf("Bearish Stochastic RSI: %.2f", mc.StochRSI))
	case mc.StochRSI < 60:
		s.add(2, 1, fmt.Sprintf("Neutral Stochastic RSI: %.2f", mc.StochRSI))
	default:
		s.add(2, 0, "")
	}

	switch {
	case len(kl.Resistance) > 0 && mc.Price >= kl.Resistance[0]*0.98:
		s.add(3, 3, fmt.Sprintf("Price near resistance (%.2f)", kl.Resistance[0]))
	case len(kl.Resistance) > 0 && mc.Price >= kl.Resistance[0]*0.95:
		s.add(3, 1, fmt.Sprintf("Price approaching resistance (%.2f)", kl.Resistance[0]))
	default:
		s.add(3, 0, "")
	}

	if mc.Options.Available {
		if mc.Options.GEX < -500 {
			s.add(2, 2, "Negative GEX indicating bearish pressure")
		} else {
			s.add(2, 0, "")
		}
	}
	return s
}

func scoreNeutral(mc marketContext, kl models.KeyLevels) *scorecard {
	s := &scorecard{label: models.Neutral}

	if mc.Trend == models.Neutral {
		s.add(3, 3, "Neutral trend (flat EMAs)")
	} else {
		s.add(3, 0, "")
	}

	if mc.Options.Available {
		if mc.PCR >= 0.8 && mc.PCR <= 1.2 {
			s.add(2, 2, fmt.Sprintf("Neutral sentiment (PCR: %.2f)", mc.PCR))
		} else {
			s.add(2, 0, "")
		}

		iv := mc.Options.VWIV
		switch {
		case iv < 0.4:
			s.add(2, 2, fmt.Sprintf("Low implied volatility (%.2f)", iv))
		case iv < 0.5:
			s.add(2, 1, fmt.Sprintf("Moderate implied volatility (%.2f)", iv))
		default:
			s.add(2, 0, "")
		}
	}

	if mc.RSI >= 45 && mc.RSI <= 65 {
		s.add(2, 2, fmt.Sprintf("Neutral momentum (RSI: %.2f)", mc.RSI))
	} else {
		s.add(2, 0, "")
	}

	if mc.StochRSI >= 25 && mc.StochRSI <= 75 {
		s.add(2, 2, fmt.Sprintf("Neutral Stochastic RSI: %.2f", mc.StochRSI))
	} else {
		s.add(2, 0, "")
	}

	// max pain and GEX need open interest
	if mc.Options.Available {
		dist := math.Inf(1)
		if kl.MaxPain > 0 {
			dist = math.Abs(mc.Price-kl.MaxPain) / kl.MaxPain
		}
		switch {
		case dist < 0.02:
			s.add(3, 3, fmt.Sprintf("Price near Max Pain (%.2f)", kl.MaxPain))
		case dist < 0.05:
			s.add(3, 1, fmt.Sprintf("Price approaching Max Pain (%.2f)", kl.MaxPain))
		default:
			s.add(3, 0, "")
		}
		if math.Abs(mc.Options.GEX) < 200 {
			s.add(2, 2, "GEX near zero indicating potential breakout")
		} else {
			s.add(2, 0, "")
		}
	}
	return s
}
