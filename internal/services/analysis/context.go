package analysis

import (
	"math"

	"SetupScan/internal/domain/models"
)

// series holds the price history and the indicators derived from it.
type series struct {
	closes  []float64
	highs   []float64
	lows    []float64
	volumes []float64

	ema10  []float64
	ema20  []float64
	ema50  []float64
	rsi    []float64
	stochK []float64
	stochD []float64
	volSMA []float64
}

func newSeries(candles []models.Candle) *series {
	s := &series{
		closes:  make([]float64, len(candles)),
		highs:   make([]float64, len(candles)),
		lows:    make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.closes[i] = c.Close
		s.highs[i] = c.High
		s.lows[i] = c.Low
		s.volumes[i] = c.Volume
	}
	s.ema10 = ema(s.closes, 10)
	s.ema20 = ema(s.closes, 20)
	s.ema50 = ema(s.closes, 50)
	s.rsi = rsi(s.closes, 14)
	s.stochK, s.stochD = stochastic(s.rsi, 14, 3)
	s.volSMA = sma(s.volumes, 20)
	return s
}

func (s *series) len() int { return len(s.closes) }
func (s *series) price() float64 { return last(s.closes) }

// optionStats summarizes the option chain positioning.
type optionStats struct {
	Available bool
	PCR       float64 // put volume / call volume
	VWIV      float64 // call implied volatility weighted by volume
	GEX       float64 // dealer gamma exposure in millions per 1% move
}

func newOptionStats(chain *models.OptionChain, price float64) optionStats {
	if chain == nil || (len(chain.Calls) == 0 && len(chain.Puts) == 0) {
		return optionStats{}
	}
	st := optionStats{Available: true}

	var callVol, putVol, ivWeighted float64
	for _, c := range chain.Calls {
		callVol += c.Volume
		ivWeighted += c.ImpliedVolatility * c.Volume
	}
	for _, p := range chain.Puts {
		putVol += p.Volume
	}
	if callVol > 0 {
		st.PCR = putVol / callVol
		st.VWIV = ivWeighted / callVol
	}

	// calls add dealer gamma, puts remove it; 100 shares per contract
	var gex float64
	for _, c := range chain.Calls {
		gex += c.Gamma * c.OpenInterest * 100 * price * price * 0.01
	}
	for _, p := range chain.Puts {
		gex -= p.Gamma * p.OpenInterest * 100 * price * price * 0.01
	}
	st.GEX = gex / 1e6
	return st
}

// marketContext is the full context used by the scoring stages.
type marketContext struct {
	models.MarketContext
	Options optionStats
	Price   float64
	EMA10   float64
	EMA20   float64
	EMA50   float64
}

func newMarketContext(s *series, opts optionStats) marketContext {
	mc := marketContext{
		Options: opts,
		Price:   s.price(),
		EMA10:   last(s.ema10),
		EMA20:   last(s.ema20),
		EMA50:   last(s.ema50),
	}
	mc.RSI = last(s.rsi)
	mc.StochRSI = last(s.stochK)
	mc.PCR = opts.PCR
	mc.Trend = determineTrend(s)
	mc.Sentiment = determineSentiment(opts)
	mc.Momentum = determineMomentum(mc.RSI, mc.StochRSI)
	return mc
}

func determineTrend(s *series) models.TrendLabel {
	e10, e20, e50 := last(s.ema10), last(s.ema20), last(s.ema50)
	switch {
	case e10 > e20 && e20 > e50:
		return models.Bullish
	case e10 < e20 && e20 < e50:
		return models.Bearish
	}

	if e20 != 0 {
		spread := (math.Max(e10, math.Max(e20, e50)) - math.Min(e10, math.Min(e20, e50))) / e20
		if spread < 0.01 {
			return models.Neutral
		}
	}

	n := s.len()
	if n >= 5 {
		ref := s.closes[n-5]
		if ref != 0 {
			change := (s.closes[n-1] - ref) / ref
			switch {
			case change > 0.02:
				return models.Bullish
			case change < -0.02:
				return models.Bearish
			}
		}
	}
	return models.Neutral
}

// determineSentiment reads the put/call ratio with bands that widen as implied
// volatility rises. Without option data sentiment is neutral.
func determineSentiment(opts optionStats) models.TrendLabel {
	if !opts.Available {
		return models.Neutral
	}
	lo, hi := 0.5, 1.5
	switch {
	case opts.VWIV < 0.3:
		lo, hi = 0.7, 1.3
	case opts.VWIV < 0.5:
		lo, hi = 0.8, 1.2
	}
	switch {
	case opts.PCR < lo:
		return models.Bullish
	case opts.PCR > hi:
		return models.Bearish
	}
	return models.Neutral
}

type zone int

const (
	zoneNeutral zone = iota
	zoneBullish
	zoneBearish
	zoneOverbought
	zoneOversold
)

func classify(v, overbought, oversold, bullish, bearish float64) zone {
	switch {
	case v > overbought:
		return zoneOverbought
	case v < oversold:
		return zoneOversold
	case v > bullish:
		return zoneBullish
	case v < bearish:
		return zoneBearish
	}
	return zoneNeutral
}

func determineMomentum(rsiVal, stochVal float64) models.TrendLabel {
	r := classify(rsiVal, 70, 30, 55, 45)
	s := classify(stochVal, 80, 20, 60, 40)
	up := func(z zone) bool { return z == zoneBullish || z == zoneOversold }
	down := func(z zone) bool { return z == zoneBearish || z == zoneOverbought }
	switch {
	case up(r) && up(s):
		return models.Bullish
	case down(r) && down(s):
		return models.Bearish
	}
	return models.Neutral
}
