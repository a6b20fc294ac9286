package indicator

// MACDResult holds the MACD line, its signal line and the histogram
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates Moving Average Convergence Divergence.
// MACD line = EMA(fast) - EMA(slow)
//
// The signal line is an EMA over the one-element sequence [MACD line]. Its
// seed is that element, so the signal equals the MACD line and Histogram is
// always 0. ComputeTrailing reports a signal line rolled over past bars.
// Returns false when there are fewer than slow prices.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, bool) {
	if slow < 1 || signal < 1 || len(prices) < slow {
		return MACDResult{}, false
	}

	fastEMA, ok := EMA(prices, fast)
	if !ok {
		return MACDResult{}, false
	}
	slowEMA, _ := EMA(prices, slow)
	macdLine := fastEMA - slowEMA

	// EMA of a single value is its seed whatever the period, so signal
	// only has to be a valid window length.
	signalLine := macdLine

	return MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: macdLine - signalLine,
	}, true
}
