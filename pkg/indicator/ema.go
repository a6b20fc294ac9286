package indicator

// EMA calculates the Exponential Moving Average over the whole series.
// EMA = (Price - Previous EMA) * Multiplier + Previous EMA
// Multiplier = 2 / (Period + 1)
//
// The recurrence is seeded with prices[0], not with an SMA of the first
// period prices. MACD values depend on this seeding.
// Returns false when there are fewer than period prices.
func EMA(prices []float64, period int) (float64, bool) {
	if period < 1 || len(prices) < period {
		return 0, false
	}

	multiplier := 2.0 / float64(period+1)

	ema := prices[0]
	for _, price := range prices[1:] {
		ema = (price-ema)*multiplier + ema
	}

	return ema, true
}
