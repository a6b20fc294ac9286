package indicator

import (
	"fmt"
)

// SignalType is the direction of a trading signal
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// SignalStrength grades a trading signal
type SignalStrength string

const (
	StrengthStrong   SignalStrength = "STRONG"
	StrengthModerate SignalStrength = "MODERATE"
)

// Names of the indicators that emit signals
const (
	SourceSMACrossover = "SMA Crossover"
	SourceRSI          = "RSI"
	SourceBollinger    = "Bollinger Bands"
)

// Signal is a discrete trading signal derived from one indicator
type Signal struct {
	Type        SignalType     `json:"type"`
	Indicator   string         `json:"indicator"`
	Strength    SignalStrength `json:"strength"`
	Description string         `json:"description"`
}

// GenerateSignals evaluates the SMA crossover, RSI and Bollinger rules in
// that order against the last price of the series. Every rule that fires
// contributes one signal; an empty series yields no signals. Series that
// overflow the indicator arithmetic are rejected like in Analyze.
func GenerateSignals(prices []float64) ([]Signal, error) {
	if err := Validate(prices); err != nil {
		return nil, err
	}
	if err := checkFinite(prices, computeIndicators(prices)); err != nil {
		return nil, err
	}
	return generateSignals(prices), nil
}

func generateSignals(prices []float64) []Signal {
	signals := make([]Signal, 0, 3)
	if len(prices) == 0 {
		return signals
	}
	currentPrice := prices[len(prices)-1]

	if signal, ok := smaCrossoverSignal(prices, currentPrice); ok {
		signals = append(signals, signal)
	}
	if signal, ok := rsiSignal(prices); ok {
		signals = append(signals, signal)
	}
	if signal, ok := bollingerSignal(prices, currentPrice); ok {
		signals = append(signals, signal)
	}

	return signals
}

func smaCrossoverSignal(prices []float64, currentPrice float64) (Signal, bool) {
	sma20, ok20 := SMA(prices, SMAShortPeriod)
	sma50, ok50 := SMA(prices, SMAMediumPeriod)
	if !ok20 || !ok50 {
		return Signal{}, false
	}

	switch {
	case sma20 > sma50 && currentPrice > sma20:
		return Signal{
			Type:        SignalBuy,
			Indicator:   SourceSMACrossover,
			Strength:    StrengthStrong,
			Description: "Price above SMA20 and SMA20 above SMA50",
		}, true
	case sma20 < sma50 && currentPrice < sma20:
		return Signal{
			Type:        SignalSell,
			Indicator:   SourceSMACrossover,
			Strength:    StrengthStrong,
			Description: "Price below SMA20 and SMA20 below SMA50",
		}, true
	}
	return Signal{}, false
}

func rsiSignal(prices []float64) (Signal, bool) {
	rsi, ok := RSI(prices, RSIPeriod)
	if !ok {
		return Signal{}, false
	}

	switch {
	case rsi < RSIOversold:
		return Signal{
			Type:        SignalBuy,
			Indicator:   SourceRSI,
			Strength:    StrengthModerate,
			Description: fmt.Sprintf("RSI oversold at %.2f", rsi),
		}, true
	case rsi > RSIOverbought:
		return Signal{
			Type:        SignalSell,
			Indicator:   SourceRSI,
			Strength:    StrengthModerate,
			Description: fmt.Sprintf("RSI overbought at %.2f", rsi),
		}, true
	}
	return Signal{}, false
}

func bollingerSignal(prices []float64, currentPrice float64) (Signal, bool) {
	bands, ok := Bollinger(prices, BollingerPeriod, BollingerMultiplier)
	if !ok {
		return Signal{}, false
	}

	switch {
	case currentPrice < bands.Lower:
		return Signal{
			Type:        SignalBuy,
			Indicator:   SourceBollinger,
			Strength:    StrengthModerate,
			Description: "Price below lower Bollinger Band",
		}, true
	case currentPrice > bands.Upper:
		return Signal{
			Type:        SignalSell,
			Indicator:   SourceBollinger,
			Strength:    StrengthModerate,
			Description: "Price above upper Bollinger Band",
		}, true
	}
	return Signal{}, false
}
