package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMASeededWithSimpleAverage(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out := ema(data, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2, out[2], 1e-9)
	assert.InDelta(t, 3, out[3], 1e-9)
	assert.InDelta(t, 9, out[9], 1e-9)
}

func TestEMAShortInput(t *testing.T) {
	out := ema([]float64{1, 2}, 3)
	require.Len(t, out, 2)
	assert.Equal(t, 0.0, last(out))
}

func TestSMA(t *testing.T) {
	out := sma([]float64{2, 4, 6, 8}, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 3, out[1], 1e-9)
	assert.InDelta(t, 7, out[3], 1e-9)
}

func TestRSIWilderSmoothing(t *testing.T) {
	out := rsi([]float64{1, 2, 1, 2, 1}, 2)
	assert.InDelta(t, 50, out[2], 1e-9)
	assert.InDelta(t, 75, out[3], 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 20)
	flat := make([]float64, 20)
	for i := range up {
		up[i] = float64(i + 1)
		flat[i] = 10
	}
	assert.InDelta(t, 100, last(rsi(up, 14)), 1e-9)
	assert.InDelta(t, 50, last(rsi(flat, 14)), 1e-9)
}

func TestStochastic(t *testing.T) {
	k, d := stochastic([]float64{1, 2, 3, 2, 2, 2}, 3, 2)
	assert.True(t, math.IsNaN(k[1]))
	assert.InDelta(t, 100, k[2], 1e-9)
	assert.InDelta(t, 0, k[3], 1e-9)
	assert.InDelta(t, 50, d[3], 1e-9)
	assert.InDelta(t, 50, k[5], 1e-9, "flat window")
}

func TestStochasticSkipsNaNInput(t *testing.T) {
	k, _ := stochastic([]float64{math.NaN(), 1, 2, 3}, 3, 1)
	assert.True(t, math.IsNaN(k[2]))
	assert.InDelta(t, 100, k[3], 1e-9)
}

func TestPivots(t *testing.T) {
	lows := pivotLows([]float64{5, 4, 3, 4, 5, 4, 4, 5}, 2, 2)
	require.Len(t, lows, 1)
	assert.Equal(t, pivot{Index: 2, Price: 3}, lows[0])

	highs := pivotHighs([]float64{1, 2, 3, 2, 1}, 2, 2)
	require.Len(t, highs, 1)
	assert.Equal(t, 3.0, highs[0].Price)
}
