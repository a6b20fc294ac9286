package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBars(closes []float64, spread float64, volume int64) []models.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + spread,
			Low:    c - spread,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}

func TestComputeTrailing_Windows(t *testing.T) {
	set, err := ComputeTrailing(makeBars(series(100, 1, 14), 1, 1000))
	require.NoError(t, err)
	assert.True(t, set.ATR.IsAbsent())
	assert.True(t, set.RSI.IsAbsent())
	assert.Nil(t, set.MACD)
	assert.True(t, set.VolumeSMA.IsAbsent())

	set, err = ComputeTrailing(makeBars(series(100, 1, 20), 1, 1000))
	require.NoError(t, err)
	assert.False(t, set.ATR.IsAbsent())
	assert.False(t, set.RSI.IsAbsent())
	assert.Nil(t, set.MACD, "MACD signal needs slow+signal-1 bars")
	assert.False(t, set.VolumeSMA.IsAbsent())

	set, err = ComputeTrailing(makeBars(series(100, 1, 34), 1, 1000))
	require.NoError(t, err)
	assert.NotNil(t, set.MACD)
}

func TestComputeTrailing_FlatBars(t *testing.T) {
	set, err := ComputeTrailing(makeBars(series(100, 0, 40), 0, 5000))
	require.NoError(t, err)

	atr, ok := set.ATR.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.0, atr, 1e-9)

	volume, ok := set.VolumeSMA.Get()
	require.True(t, ok)
	assert.InDelta(t, 5000.0, volume, 1e-9)

	require.NotNil(t, set.MACD)
	assert.InDelta(t, 0.0, set.MACD.MACD, 1e-9)
	assert.InDelta(t, 0.0, set.MACD.Histogram, 1e-9)

	rsi, ok := set.RSI.Get()
	require.True(t, ok)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestComputeTrailing_MACDSignalStartsAtFirstValidMACD(t *testing.T) {
	for _, n := range []int{34, 50, 91} {
		set, err := ComputeTrailing(makeBars(series(100, 0, n), 0, 1000))
		require.NoError(t, err)
		require.NotNil(t, set.MACD, "n=%d", n)
		assert.InDelta(t, 0.0, set.MACD.MACD, 1e-9, "n=%d", n)
		assert.InDelta(t, 0.0, set.MACD.Signal, 1e-9, "n=%d", n)
		assert.InDelta(t, 0.0, set.MACD.Histogram, 1e-9, "n=%d", n)
	}
}

func TestComputeTrailing_MACDLinearSeries(t *testing.T) {
	// SMA-seeded EMAs of a unit-slope series lag by (period-1)/2, so the
	// MACD line is 12.5-5.5 = 7 and so is its signal line.
	for _, n := range []int{34, 50} {
		set, err := ComputeTrailing(makeBars(series(100, 1, n), 0.5, 1000))
		require.NoError(t, err)
		require.NotNil(t, set.MACD)
		assert.InDelta(t, 7.0, set.MACD.MACD, 1e-6, "n=%d", n)
		assert.InDelta(t, 7.0, set.MACD.Signal, 1e-6, "n=%d", n)
		assert.InDelta(t, 0.0, set.MACD.Histogram, 1e-6, "n=%d", n)
	}
}

func TestComputeTrailing_RecentTrend(t *testing.T) {
	// Rising for 40 bars, then falling for 20. The trailing RSI follows the
	// recent fall while the first-window RSI still reads 100.
	closes := append(series(100, 1, 40), series(138, -1, 20)...)

	set, err := ComputeTrailing(makeBars(closes, 0.5, 1000))
	require.NoError(t, err)

	trailing, ok := set.RSI.Get()
	require.True(t, ok)
	assert.Less(t, trailing, 50.0)

	first, ok := RSI(closes, RSIPeriod)
	require.True(t, ok)
	assert.Equal(t, 100.0, first)

	require.NotNil(t, set.MACD)
	assert.NotEqual(t, 0.0, set.MACD.Histogram)
}

func TestComputeTrailing_InvalidBars(t *testing.T) {
	bars := makeBars(series(100, 1, 20), 1, 1000)
	bars[2].High = math.NaN()

	_, err := ComputeTrailing(bars)
	require.ErrorIs(t, err, ErrInvalidInput)
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, 2, inputErr.Index)
	assert.Equal(t, "high", inputErr.Field)

	bars = makeBars(series(100, 1, 20), 1, 1000)
	bars[5].Low = bars[5].High + 1
	_, err = ComputeTrailing(bars)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, 5, inputErr.Index)

	bars = makeBars(series(100, 1, 20), 1, 1000)
	bars[7].Volume = -10
	_, err = ComputeTrailing(bars)
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "volume", inputErr.Field)
}

func TestComputeTrailing_Empty(t *testing.T) {
	set, err := ComputeTrailing(nil)
	require.NoError(t, err)
	assert.True(t, set.ATR.IsAbsent())
	assert.Nil(t, set.MACD)
}

func TestCloses(t *testing.T) {
	bars := makeBars([]float64{1, 2, 3}, 0, 0)
	assert.Equal(t, []float64{1, 2, 3}, Closes(bars))
}
