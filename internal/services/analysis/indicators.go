package analysis

import "math"

// ema computes the exponential moving average seeded with the simple average of
// the first period values. Entries before period-1 are NaN.
func ema(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	out[period-1] = sum / float64(period)
	for i := period; i < len(data); i++ {
		out[i] = data[i]*k + out[i-1]*(1-k)
	}
	return out
}

// sma computes the simple moving average. Entries before period-1 are NaN.
func sma(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// rsi computes Wilder's relative strength index. Entries before period are NaN.
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func gainLoss(change float64) (float64, float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// stochastic applies the stochastic oscillator to a single series (RSI in practice):
// %K = (v - min) / (max - min) * 100 over window, %D = SMA(%K, smooth).
// A flat window yields 50.
func stochastic(series []float64, window, smooth int) (k, d []float64) {
	k = nanSlice(len(series))
	for i := range series {
		if i < window-1 {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		valid := true
		for j := i - window + 1; j <= i; j++ {
			v := series[j]
			if math.IsNaN(v) {
				valid = false
				break
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !valid {
			continue
		}
		if hi == lo {
			k[i] = 50
			continue
		}
		k[i] = (series[i] - lo) / (hi - lo) * 100
	}

	d = nanSlice(len(series))
	for i := range k {
		if i < smooth-1 {
			continue
		}
		sum := 0.0
		valid := true
		for j := i - smooth + 1; j <= i; j++ {
			if math.IsNaN(k[j]) {
				valid = false
				break
			}
			sum += k[j]
		}
		if valid {
			d[i] = sum / float64(smooth)
		}
	}
	return k, d
}

type pivot struct {
	Index int
	Price float64
}

// pivotLows returns bars whose low is strictly below the lows of the surrounding bars.
func pivotLows(lows []float64, left, right int) []pivot {
	return pivots(lows, left, right, func(neighbour, cur float64) bool { return neighbour <= cur })
}

// pivotHighs returns bars whose high is strictly above the highs of the surrounding bars.
func pivotHighs(highs []float64, left, right int) []pivot {
	return pivots(highs, left, right, func(neighbour, cur float64) bool { return neighbour >= cur })
}

func pivots(data []float64, left, right int, beaten func(neighbour, cur float64) bool) []pivot {
	var out []pivot
	for i := left; i < len(data)-right; i++ {
		cur := data[i]
		isPivot := true
		for j := i - left; j <= i+right && isPivot; j++ {
			if j != i && beaten(data[j], cur) {
				isPivot = false
			}
		}
		if isPivot {
			out = append(out, pivot{Index: i, Price: cur})
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// last returns the final value of s, or 0 when s is empty or the value is NaN.
func last(s []float64) float64 {
	return at(s, len(s)-1)
}

func at(s []float64, i int) float64 {
	if i < 0 || i >= len(s) || math.IsNaN(s[i]) {
		return 0
	}
	return s[i]
}
