package analysis

import (
	"math"
	"sort"

	"SetupScan/internal/domain/models"
)

const (
	highGammaThreshold = 0.05
	topOpenInterest    = 5
	pivotBars          = 3
	maxPivotLevels     = 5
)

// mapKeyLevels derives support, resistance and max pain from the option chain,
// falling back to price pivots when no chain is available.
func mapKeyLevels(s *series, chain *models.OptionChain) models.KeyLevels {
	price := s.price()
	if chain == nil || (len(chain.Calls) == 0 && len(chain.Puts) == 0) {
		return pivotLevels(s, price)
	}

	resistance := topStrikes(chain.Calls, func(k float64) bool { return k > price })
	support := topStrikes(chain.Puts, func(k float64) bool { return k < price })
	for _, c := range chain.Calls {
		if c.Gamma > highGammaThreshold && c.Strike > price {
			resistance = append(resistance, c.Strike)
		}
	}
	for _, p := range chain.Puts {
		if p.Gamma > highGammaThreshold && p.Strike < price {
			support = append(support, p.Strike)
		}
	}

	var gamma []float64
	for _, c := range append(append([]models.OptionContract(nil), chain.Calls...), chain.Puts...) {
		if c.Gamma > highGammaThreshold {
			gamma = append(gamma, c.Strike)
		}
	}

	return models.KeyLevels{
		Support:    uniqueSorted(support, true),
		Resistance: uniqueSorted(resistance, false),
		MaxPain:    maxPain(chain, price),
		HighGamma:  uniqueSorted(gamma, false),
	}
}

// topStrikes keeps the strikes of the highest open interest contracts that satisfy keep.
func topStrikes(contracts []models.OptionContract, keep func(strike float64) bool) []float64 {
	sorted := append([]models.OptionContract(nil), contracts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OpenInterest > sorted[j].OpenInterest })
	if len(sorted) > topOpenInterest {
		sorted = sorted[:topOpenInterest]
	}
	out := make([]float64, 0, len(sorted))
	for _, c := range sorted {
		if keep(c.Strike) {
			out = append(out, c.Strike)
		}
	}
	return out
}

// maxPain is the strike at which option writers pay out the least at expiration.
func maxPain(chain *models.OptionChain, price float64) float64 {
	strikes := make([]float64, 0, len(chain.Calls)+len(chain.Puts))
	for _, c := range chain.Calls {
		strikes = append(strikes, c.Strike)
	}
	for _, p := range chain.Puts {
		strikes = append(strikes, p.Strike)
	}
	strikes = uniqueSorted(strikes, false)
	if len(strikes) == 0 {
		return price
	}

	best, bestPain := strikes[0], math.Inf(1)
	for _, k := range strikes {
		pain := 0.0
		for _, c := range chain.Calls {
			pain += c.OpenInterest * math.Max(0, k-c.Strike)
		}
		for _, p := range chain.Puts {
			pain += p.OpenInterest * math.Max(0, p.Strike-k)
		}
		if pain < bestPain {
			best, bestPain = k, pain
		}
	}
	return best
}

func pivotLevels(s *series, price float64) models.KeyLevels {
	var support, resistance []float64
	for _, p := range pivotLows(s.lows, pivotBars, pivotBars) {
		if p.Price < price {
			support = append(support, p.Price)
		}
	}
	for _, p := range pivotHighs(s.highs, pivotBars, pivotBars) {
		if p.Price > price {
			resistance = append(resistance, p.Price)
		}
	}
	support = uniqueSorted(support, true)
	resistance = uniqueSorted(resistance, false)
	if len(support) > maxPivotLevels {
		support = support[:maxPivotLevels]
	}
	if len(resistance) > maxPivotLevels {
		resistance = resistance[:maxPivotLevels]
	}
	return models.KeyLevels{
		Support:    support,
		Resistance: resistance,
		MaxPain:    price,
		HighGamma:  []float64{},
	}
}

// uniqueSorted dedups and sorts ascending, or descending when desc is set.
// The result is never nil.
func uniqueSorted(in []float64, desc bool) []float64 {
	out := make([]float64, 0, len(in))
	seen := make(map[float64]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if desc {
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	} else {
		sort.Float64s(out)
	}
	return out
}
