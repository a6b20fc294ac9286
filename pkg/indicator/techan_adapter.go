package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// Windows for the OHLCV-aware indicators
const (
	ATRPeriod       = 14
	VolumeSMAPeriod = 20
)

// TrailingSet holds indicators computed over the most recent bars with
// textbook smoothing: Wilder RSI, ATR, and a MACD whose signal line is an
// EMA of past MACD values rather than of the current one alone.
type TrailingSet struct {
	ATR       Value       `json:"atr14"`
	RSI       Value       `json:"rsi14"`
	MACD      *MACDResult `json:"macd"`
	VolumeSMA Value       `json:"volumeSma20"`
}

// ValidateBars checks that every bar carries finite prices, a non-negative
// volume and a high that is not below its low.
func ValidateBars(bars []models.Bar) error {
	for i, bar := range bars {
		fields := []struct {
			name  string
			value float64
		}{
			{"open", bar.Open},
			{"high", bar.High},
			{"low", bar.Low},
			{"close", bar.Close},
		}
		for _, f := range fields {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return &InvalidInputError{Index: i, Field: f.name, Value: f.value}
			}
		}
		if bar.Volume < 0 {
			return &InvalidInputError{Index: i, Field: "volume", Value: float64(bar.Volume), Reason: "negative volume"}
		}
		if bar.High < bar.Low {
			return &InvalidInputError{Index: i, Field: "bar", Reason: "high below low"}
		}
	}
	return nil
}

// Closes extracts the closing prices of bars, oldest first
func Closes(bars []models.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}

// ComputeTrailing computes the TrailingSet for a bar series (oldest first)
func ComputeTrailing(bars []models.Bar) (TrailingSet, error) {
	if err := ValidateBars(bars); err != nil {
		return TrailingSet{}, err
	}

	set := TrailingSet{
		ATR:       Absent(),
		RSI:       Absent(),
		VolumeSMA: Absent(),
	}
	if len(bars) == 0 {
		return set, nil
	}

	series, err := newTimeSeries(bars)
	if err != nil {
		return TrailingSet{}, err
	}
	lastIndex := series.LastIndex()
	closePrice := techan.NewClosePriceIndicator(series)

	if len(bars) >= ATRPeriod+1 {
		atr := techan.NewAverageTrueRangeIndicator(series, ATRPeriod)
		set.ATR = finiteValue(atr.Calculate(lastIndex))
	}

	if len(bars) >= RSIPeriod+1 {
		rsi := techan.NewRelativeStrengthIndexIndicator(closePrice, RSIPeriod)
		value := rsi.Calculate(lastIndex).Float()
		switch {
		case math.IsInf(value, 0):
		case math.IsNaN(value):
			set.RSI = Some(50.0) // Flat window
		default:
			set.RSI = Some(math.Max(0.0, math.Min(100.0, value)))
		}
	}

	if len(bars) >= MACDSlowPeriod+MACDSignalPeriod-1 {
		macd := techan.NewMACDIndicator(closePrice, MACDFastPeriod, MACDSlowPeriod)
		set.MACD = trailingMACD(macd, MACDSlowPeriod-1, lastIndex, MACDSignalPeriod)
	}

	if len(bars) >= VolumeSMAPeriod {
		volumeSMA := techan.NewSimpleMovingAverage(techan.NewVolumeIndicator(series), VolumeSMAPeriod)
		set.VolumeSMA = finiteValue(volumeSMA.Calculate(lastIndex))
	}

	return set, nil
}

// trailingMACD rolls the signal EMA over MACD values from index first
// onward. The slow EMA is undefined before first, so earlier MACD values
// must not seed the signal line. The seed is the SMA of the first period
// values. Returns nil when the arithmetic overflows.
func trailingMACD(macd techan.Indicator, first, last, period int) *MACDResult {
	if last-first+1 < period {
		return nil
	}

	values := make([]float64, 0, last-first+1)
	for i := first; i <= last; i++ {
		values = append(values, macd.Calculate(i).Float())
	}

	signalLine, _ := SMA(values[:period], period)
	multiplier := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		signalLine = (v-signalLine)*multiplier + signalLine
	}

	macdLine := values[len(values)-1]
	histogram := macdLine - signalLine
	for _, v := range []float64{macdLine, signalLine, histogram} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	return &MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}
}

// newTimeSeries converts bars to a techan series. Candles are placed on
// consecutive synthetic days so that irregular or missing bar dates never
// cause techan to reject a candle.
func newTimeSeries(bars []models.Bar) (*techan.TimeSeries, error) {
	series := techan.NewTimeSeries()
	start := time.Unix(0, 0).UTC()

	for i, bar := range bars {
		period := techan.NewTimePeriod(start.Add(time.Duration(i)*24*time.Hour), 24*time.Hour)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewDecimal(bar.Open)
		candle.MaxPrice = big.NewDecimal(bar.High)
		candle.MinPrice = big.NewDecimal(bar.Low)
		candle.ClosePrice = big.NewDecimal(bar.Close)
		candle.Volume = big.NewDecimal(float64(bar.Volume))

		if !series.AddCandle(candle) {
			return nil, fmt.Errorf("failed to add candle %d to series", i)
		}
	}

	return series, nil
}

func finiteValue(d big.Decimal) Value {
	f := d.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Absent()
	}
	return Some(f)
}
