package analysis

import (
	"math"

	"SetupScan/internal/domain/models"
)

// defaultIV stands in for implied volatility when no option chain is available.
const defaultIV = 0.3

type riskPlan struct {
	PositionSize float64
	StopLoss     float64
	RiskReward   float64
	TargetPrice  float64
}

func impliedVol(mc marketContext) float64 {
	if !mc.Options.Available {
		return defaultIV
	}
	return mc.Options.VWIV
}

// positionSize is the fraction of the account to commit.
func positionSize(mc marketContext, confidence float64) float64 {
	var base float64
	switch iv := impliedVol(mc); {
	case iv < 0.3:
		base = 0.02
	case iv < 0.45:
		base = 0.015
	case iv < 0.6:
		base = 0.01
	default:
		base = 0.005
	}

	gexFactor := 1.0
	switch g := math.Abs(mc.Options.GEX); {
	case g > 1000:
		gexFactor = 0.7
	case g > 500:
		gexFactor = 0.8
	}
	return base * gexFactor * math.Min(confidence/100, 1)
}

func percentageStop(iv float64) float64 {
	switch {
	case iv < 0.3:
		return 0.02
	case iv < 0.45:
		return 0.03
	case iv < 0.6:
		return 0.05
	}
	return 0.07
}

// technicalStop places the stop just beyond the nearest structural level.
func technicalStop(mc marketContext, kl models.KeyLevels, label models.TrendLabel) float64 {
	pct := percentageStop(impliedVol(mc))
	switch label {
	case models.Bullish:
		if len(kl.Support) > 0 {
			return kl.Support[0] * 0.99
		}
		if mc.EMA20 > 0 {
			return mc.EMA20 * 0.99
		}
		return mc.Price * (1 - pct)
	case models.Bearish:
		if len(kl.Resistance) > 0 {
			return kl.Resistance[0] * 1.01
		}
		if mc.EMA20 > 0 {
			return mc.EMA20 * 1.01
		}
		return mc.Price * (1 + pct)
	}
	return mc.Price * (1 - pct)
}

func planRisk(mc marketContext, kl models.KeyLevels, label models.TrendLabel, confidence float64) riskPlan {
	plan := riskPlan{PositionSize: positionSize(mc, confidence)}
	price := mc.Price
	if price == 0 {
		return plan
	}
	plan.StopLoss = technicalStop(mc, kl, label)

	var risk, reward float64
	switch label {
	case models.Bullish:
		risk = price - plan.StopLoss
		reward = price * 0.05
		if len(kl.Resistance) > 0 {
			reward = kl.Resistance[0] - price
		}
	case models.Bearish:
		risk = plan.StopLoss - price
		reward = price * 0.05
		if len(kl.Support) > 0 {
			reward = price - kl.Support[0]
		}
	default:
		risk = math.Abs(price - plan.StopLoss)
		reward = price * 0.02
	}
	if risk > 0 {
		plan.RiskReward = reward / risk
	}
	if label == models.Bullish {
		plan.TargetPrice = price + reward
	} else {
		plan.TargetPrice = price - reward
	}
	return plan
}
