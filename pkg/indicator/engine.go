package indicator

// Fixed indicator windows
const (
	SMAShortPeriod  = 20
	SMAMediumPeriod = 50
	SMALongPeriod   = 200

	EMAFastPeriod = 12
	EMASlowPeriod = 26

	RSIPeriod     = 14
	RSIOversold   = 30.0
	RSIOverbought = 70.0

	MACDFastPeriod   = EMAFastPeriod
	MACDSlowPeriod   = EMASlowPeriod
	MACDSignalPeriod = 9

	BollingerPeriod     = 20
	BollingerMultiplier = 2.0
)

// SMASet holds the simple moving averages
type SMASet struct {
	SMA20  Value `json:"sma20"`
	SMA50  Value `json:"sma50"`
	SMA200 Value `json:"sma200"`
}

// EMASet holds the exponential moving averages
type EMASet struct {
	EMA12 Value `json:"ema12"`
	EMA26 Value `json:"ema26"`
}

// IndicatorSet holds every indicator computed from a closing price series.
// Indicators whose window exceeds the series length are absent (JSON null).
type IndicatorSet struct {
	SMA            SMASet          `json:"sma"`
	EMA            EMASet          `json:"ema"`
	RSI            Value           `json:"rsi"`
	MACD           *MACDResult     `json:"macd"`
	BollingerBands *BollingerBands `json:"bollingerBands"`
}

// Analysis is the result of a full engine run
type Analysis struct {
	LastPrice  Value        `json:"lastPrice"`
	Indicators IndicatorSet `json:"indicators"`
	Signals    []Signal     `json:"signals"`
}

// ComputeIndicators computes the IndicatorSet for a closing price series.
// The series is validated first; on error no partial result is returned.
// A series large enough to overflow any indicator is rejected as well.
func ComputeIndicators(prices []float64) (IndicatorSet, error) {
	if err := Validate(prices); err != nil {
		return IndicatorSet{}, err
	}
	set := computeIndicators(prices)
	if err := checkFinite(prices, set); err != nil {
		return IndicatorSet{}, err
	}
	return set, nil
}

// Analyze computes the IndicatorSet and the trading signals for a closing
// price series (oldest first). The input slice is never modified or retained.
func Analyze(prices []float64) (*Analysis, error) {
	if err := Validate(prices); err != nil {
		return nil, err
	}

	set := computeIndicators(prices)
	if err := checkFinite(prices, set); err != nil {
		return nil, err
	}

	lastPrice := Absent()
	if len(prices) > 0 {
		lastPrice = Some(prices[len(prices)-1])
	}

	return &Analysis{
		LastPrice:  lastPrice,
		Indicators: set,
		Signals:    generateSignals(prices),
	}, nil
}

func computeIndicators(prices []float64) IndicatorSet {
	set := IndicatorSet{
		SMA: SMASet{
			SMA20:  valueOf(SMA(prices, SMAShortPeriod)),
			SMA50:  valueOf(SMA(prices, SMAMediumPeriod)),
			SMA200: valueOf(SMA(prices, SMALongPeriod)),
		},
		EMA: EMASet{
			EMA12: valueOf(EMA(prices, EMAFastPeriod)),
			EMA26: valueOf(EMA(prices, EMASlowPeriod)),
		},
		RSI: valueOf(RSI(prices, RSIPeriod)),
	}

	if macd, ok := MACD(prices, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod); ok {
		set.MACD = &macd
	}
	if bands, ok := Bollinger(prices, BollingerPeriod, BollingerMultiplier); ok {
		set.BollingerBands = &bands
	}

	return set
}

func (s IndicatorSet) finite() bool {
	for _, v := range []Value{s.SMA.SMA20, s.SMA.SMA50, s.SMA.SMA200, s.EMA.EMA12, s.EMA.EMA26, s.RSI} {
		if f, ok := v.Get(); ok && !isFinite(f) {
			return false
		}
	}
	if m := s.MACD; m != nil && !(isFinite(m.MACD) && isFinite(m.Signal) && isFinite(m.Histogram)) {
		return false
	}
	if b := s.BollingerBands; b != nil && !(isFinite(b.Upper) && isFinite(b.Middle) && isFinite(b.Lower)) {
		return false
	}
	return true
}
