package analysis

import (
	"fmt"
	"math"

	"SetupScan/internal/domain/models"
)

const signalThreshold = 50

// signal is an entry or exit confirmation.
type signal struct {
	Active   bool
	Strength float64
	Reasons  []string
}

type signalBuilder struct {
	strength float64
	reasons  []string
}

func (b *signalBuilder) add(points float64, reason string) {
	b.strength += points
	b.reasons = append(b.reasons, reason)
}

func (b *signalBuilder) build() signal {
	reasons := b.reasons
	if reasons == nil {
		reasons = []string{}
	}
	return signal{Active: b.strength > signalThreshold, Strength: b.strength, Reasons: reasons}
}

func insufficient() signal {
	return signal{Reasons: []string{"Insufficient data"}}
}

// entrySignal confirms an entry in the direction of the setup label.
func entrySignal(s *series, mc marketContext, kl models.KeyLevels, label models.TrendLabel) signal {
	if s.len() < 5 {
		return insufficient()
	}
	switch label {
	case models.Bullish:
		return bullishEntry(s, mc, kl)
	case models.Bearish:
		return bearishEntry(s, mc, kl)
	default:
		return neutralEntry(mc, kl)
	}
}

func bullishEntry(s *series, mc marketContext, kl models.KeyLevels) signal {
	var b signalBuilder
	n := s.len() - 1
	k, pk := at(s.stochK, n), at(s.stochK, n-1)
	d, pd := at(s.stochD, n), at(s.stochD, n-1)

	if pk < 60 && k > pk && d > pd {
		b.add(30, "Stochastic RSI hooking up from below 60")
	}
	if ratio := volumeRatio(s); ratio > 1.5 {
		b.add(20, fmt.Sprintf("Volume spike (%.2fx average)", ratio))
	}
	if len(kl.Support) > 0 && kl.Support[0] != 0 && math.Abs(mc.Price-kl.Support[0])/kl.Support[0] < 0.02 {
		b.add(25, fmt.Sprintf("Price near support level (%.2f)", kl.Support[0]))
	}
	if mc.EMA10 > 0 && mc.EMA20 > 0 && mc.Price > mc.EMA10 && mc.Price > mc.EMA20 {
		b.add(15, "Price above key EMAs")
	}
	if mc.RSI > at(s.rsi, n-1) && mc.RSI > 50 {
		b.add(10, fmt.Sprintf("RSI showing upward momentum (%.2f)", mc.RSI))
	}
	return b.build()
}

func bearishEntry(s *series, mc marketContext, kl models.KeyLevels) signal {
	var b signalBuilder
	n := s.len() - 1
	k, pk := at(s.stochK, n), at(s.stochK, n-1)
	d, pd := at(s.stochD, n), at(s.stochD, n-1)

	if pk > 40 && k < pk && d < pd {
		b.add(30, "Stochastic RSI hooking down from above 40")
	}
	if ratio := volumeRatio(s); ratio > 1.5 {
		b.add(20, fmt.Sprintf("Volume spike (%.2fx average)", ratio))
	}
	if len(kl.Resistance) > 0 && kl.Resistance[0] != 0 && math.Abs(mc.Price-kl.Resistance[0])/kl.Resistance[0] < 0.02 {
		b.add(25, fmt.Sprintf("Price near resistance level (%.2f)", kl.Resistance[0]))
	}
	if mc.EMA10 > 0 && mc.EMA20 > 0 && mc.Price < mc.EMA10 && mc.Price < mc.EMA20 {
		b.add(15, "Price below key EMAs")
	}
	if prev := at(s.rsi, n-1); mc.RSI < prev && mc.RSI < 50 {
		b.add(10, fmt.Sprintf("RSI showing downward momentum (%.2f)", mc.RSI))
	}
	return b.build()
}

func neutralEntry(mc marketContext, kl models.KeyLevels) signal {
	var b signalBuilder
	if mc.Options.Available && kl.MaxPain != 0 && math.Abs(mc.Price-kl.MaxPain)/kl.MaxPain < 0.01 {
		b.add(40, fmt.Sprintf("Price stalling at Max Pain (%.2f)", kl.MaxPain))
	}
	if mc.Options.Available && mc.Options.VWIV < 0.3 {
		b.add(20, fmt.Sprintf("Low implied volatility (%.2f)", mc.Options.VWIV))
	}
	if mc.RSI >= 45 && mc.RSI <= 55 {
		b.add(20, fmt.Sprintf("RSI in neutral zone (%.2f)", mc.RSI))
	}
	if mc.StochRSI >= 40 && mc.StochRSI <= 60 {
		b.add(20, fmt.Sprintf("Stochastic RSI in neutral zone (%.2f)", mc.StochRSI))
	}
	return b.build()
}

// exitSignal flags conditions that argue for closing a position in the setup direction.
// Neutral setups have no exit rules.
func exitSignal(s *series, mc marketContext, kl models.KeyLevels, label models.TrendLabel) signal {
	if s.len() < 5 {
		return insufficient()
	}
	var b signalBuilder
	n := s.len() - 1
	k, pk := at(s.stochK, n), at(s.stochK, n-1)
	prevClose, prevEMA10 := s.closes[n-1], at(s.ema10, n-1)

	switch label {
	case models.Bullish:
		if mc.RSI > 80 {
			b.add(30, fmt.Sprintf("RSI overbought (%.2f)", mc.RSI))
		}
		if pk > k && pk > 80 {
			b.add(25, "Stochastic RSI reversing from overbought")
		}
		if len(kl.Resistance) > 0 && kl.Resistance[0] != 0 && math.Abs(mc.Price-kl.Resistance[0])/kl.Resistance[0] < 0.01 {
			b.add(25, fmt.Sprintf("Price reaching resistance (%.2f)", kl.Resistance[0]))
		}
		if mc.EMA10 > 0 && mc.Price < mc.EMA10 && prevClose > prevEMA10 {
			b.add(20, "Price breaking below 10 EMA")
		}
	case models.Bearish:
		if mc.RSI < 20 {
			b.add(30, fmt.Sprintf("RSI oversold (%.2f)", mc.RSI))
		}
		if pk < k && pk < 20 {
			b.add(25, "Stochastic RSI reversing from oversold")
		}
		if len(kl.Support) > 0 && kl.Support[0] != 0 && math.Abs(mc.Price-kl.Support[0])/kl.Support[0] < 0.01 {
			b.add(25, fmt.Sprintf("Price reaching support (%.2f)", kl.Support[0]))
		}
		if mc.EMA10 > 0 && mc.Price > mc.EMA10 && prevEMA10 > 0 && prevClose < prevEMA10 {
			b.add(20, "Price breaking above 10 EMA")
		}
	}
	return b.build()
}

func volumeRatio(s *series) float64 {
	avg := last(s.volSMA)
	if avg <= 0 {
		return 0
	}
	return s.volumes[s.len()-1] / avg
}
