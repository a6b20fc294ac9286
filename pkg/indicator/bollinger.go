package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BollingerBands holds the upper, middle and lower bands
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger calculates Bollinger Bands over the last period prices.
// Middle = SMA(period), bands = Middle ± multiplier * population standard deviation.
// Returns false when there are fewer than period prices.
func Bollinger(prices []float64, period int, multiplier float64) (BollingerBands, bool) {
	middle, ok := SMA(prices, period)
	if !ok {
		return BollingerBands{}, false
	}

	window := prices[len(prices)-period:]
	variance := stat.PopVariance(window, nil)
	if variance < 0 {
		variance = 0
	}
	deviation := math.Sqrt(variance) * multiplier

	return BollingerBands{
		Upper:  middle + deviation,
		Middle: middle,
		Lower:  middle - deviation,
	}, true
}
