package indicator

import (
	"gonum.org/v1/gonum/floats"
)

// SMA calculates the Simple Moving Average of the last period prices.
// SMA = Sum of last period prices / period
// Returns false when there are fewer than period prices.
func SMA(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period {
		return 0, false
	}
	window := prices[len(prices)-period:]
	return floats.Sum(window) / float64(period), true
}
