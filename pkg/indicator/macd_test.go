package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACD_Window(t *testing.T) {
	_, ok := MACD(series(100, 1, 25), 12, 26, 9)
	assert.False(t, ok, "MACD is gated on the slow period")

	_, ok = MACD(series(100, 1, 26), 12, 26, 9)
	assert.True(t, ok)
}

func TestMACD_LineIsEMADifference(t *testing.T) {
	prices := series(1, 1, 60)

	result, ok := MACD(prices, 12, 26, 9)
	require.True(t, ok)

	fast, _ := EMA(prices, 12)
	slow, _ := EMA(prices, 26)
	assert.Equal(t, fast-slow, result.MACD)
	assert.Greater(t, result.MACD, 0.0, "fast EMA leads on a rising series")
}

func TestMACD_HistogramAlwaysZero(t *testing.T) {
	inputs := [][]float64{
		series(1, 1, 60),
		series(500, -3, 40),
		series(100, 0, 26),
		{10, 12, 9, 14, 11, 13, 8, 15, 10, 12, 9, 14, 11, 13, 8, 15, 10, 12, 9, 14, 11, 13, 8, 15, 10, 12, 9, 14},
	}

	for _, prices := range inputs {
		result, ok := MACD(prices, 12, 26, 9)
		require.True(t, ok)
		assert.Equal(t, result.MACD, result.Signal)
		assert.Equal(t, 0.0, result.Histogram)
	}
}

func TestMACD_SignalPeriod(t *testing.T) {
	prices := series(100, 2, 40)

	want, ok := MACD(prices, 12, 26, 9)
	require.True(t, ok)
	for _, signal := range []int{1, 5, 50} {
		got, ok := MACD(prices, 12, 26, signal)
		require.True(t, ok)
		assert.Equal(t, want, got, "signal=%d", signal)
	}

	for _, signal := range []int{0, -9} {
		_, ok := MACD(prices, 12, 26, signal)
		assert.False(t, ok, "signal=%d", signal)
	}
}

func TestMACD_ConstantSeries(t *testing.T) {
	result, ok := MACD(series(250, 0, 40), 12, 26, 9)
	require.True(t, ok)
	assert.Equal(t, MACDResult{}, result)
}
