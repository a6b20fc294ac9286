package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollinger_Window(t *testing.T) {
	_, ok := Bollinger(series(100, 1, 19), 20, 2)
	assert.False(t, ok)

	_, ok = Bollinger(series(100, 1, 20), 20, 2)
	assert.True(t, ok)
}

func TestBollinger_ConstantSeries(t *testing.T) {
	bands, ok := Bollinger(series(100, 0, 25), 20, 2)
	require.True(t, ok)
	assert.Equal(t, BollingerBands{Upper: 100, Middle: 100, Lower: 100}, bands)
}

func TestBollinger_PopulationDeviation(t *testing.T) {
	// 1..20: mean 10.5, population variance (20^2-1)/12 = 33.25
	bands, ok := Bollinger(series(1, 1, 20), 20, 2)
	require.True(t, ok)

	deviation := 2 * math.Sqrt(33.25)
	assert.InDelta(t, 10.5, bands.Middle, 1e-9)
	assert.InDelta(t, 10.5+deviation, bands.Upper, 1e-9)
	assert.InDelta(t, 10.5-deviation, bands.Lower, 1e-9)
}

func TestBollinger_UsesLastWindow(t *testing.T) {
	prices := append(series(1000, 50, 30), series(100, 0, 20)...)

	bands, ok := Bollinger(prices, 20, 2)
	require.True(t, ok)
	assert.Equal(t, 100.0, bands.Middle)
	assert.Equal(t, 100.0, bands.Upper)
}

func TestBollinger_Ordering(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for trial := 0; trial < 200; trial++ {
		prices := make([]float64, rng.Intn(60)+20)
		for i := range prices {
			prices[i] = 1000 + rng.NormFloat64()*25
		}

		bands, ok := Bollinger(prices, 20, 2)
		require.True(t, ok)
		assert.LessOrEqual(t, bands.Lower, bands.Middle)
		assert.LessOrEqual(t, bands.Middle, bands.Upper)
	}
}
