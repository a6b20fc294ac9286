package indicator

import (
	"math"
)

// RSI calculates the Relative Strength Index
// RSI = 100 - (100 / (1 + RS))
// where RS = Average Gain / Average Loss
//
// Gains and losses are taken from the first period deltas of the series
// (prices[1]-prices[0] .. prices[period]-prices[period-1]), not from the
// most recent ones. ComputeTrailing provides the trailing Wilder RSI.
//
// With no losses the result is 100, and with neither gains nor losses it is 50.
// Returns false when there are fewer than period+1 prices.
func RSI(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	return relativeStrength(avgGain, avgLoss), true
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0 // Flat window
		}
		return 100.0 // All gains, no losses
	}

	rs := avgGain / avgLoss
	rsi := 100.0 - (100.0 / (1.0 + rs))

	return math.Max(0.0, math.Min(100.0, rsi))
}
