package models

import (
	"math"
	"strings"
	"time"
)

// Bar represents one daily OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Date.IsZero() {
		return ErrInvalidTimestamp
	}
	if !isFinite(b.Close) || b.Close <= 0 {
		return ErrInvalidPrice
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// Quote represents the latest equity quote for a symbol
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	Sector        string    `json:"sector"`
	Industry      string    `json:"industry"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Validate validates a Quote
func (q *Quote) Validate() error {
	if q.Symbol == "" {
		return ErrInvalidSymbol
	}
	if !isFinite(q.Price) || q.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol checks that a symbol is a plausible NSE ticker
func ValidateSymbol(symbol string) error {
	s := NormalizeSymbol(symbol)
	if s == "" || len(s) > 20 {
		return ErrInvalidSymbol
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' && r != '&' && r != '_' {
			return ErrInvalidSymbol
		}
	}
	return nil
}

// Holding is one position in a portfolio request
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avgPrice"`
}

// Validate validates a Holding
func (h *Holding) Validate() error {
	if err := ValidateSymbol(h.Symbol); err != nil {
		return err
	}
	if !isFinite(h.Quantity) || h.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !isFinite(h.AvgPrice) || h.AvgPrice <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// HoldingAnalysis is the valuation of one holding
type HoldingAnalysis struct {
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	AvgPrice        float64 `json:"avgPrice"`
	CurrentPrice    float64 `json:"currentPrice"`
	PriceStale      bool    `json:"priceStale"`
	Investment      float64 `json:"investment"`
	CurrentValue    float64 `json:"currentValue"`
	GainLoss        float64 `json:"gainLoss"`
	GainLossPercent string  `json:"gainLossPercent"`
}

// PortfolioAnalysis is the valuation of a whole portfolio
type PortfolioAnalysis struct {
	TotalValue           float64           `json:"totalValue"`
	TotalInvestment      float64           `json:"totalInvestment"`
	TotalGainLoss        float64           `json:"totalGainLoss"`
	TotalGainLossPercent string            `json:"totalGainLossPercent"`
	Holdings             []HoldingAnalysis `json:"holdings"`
	Diversification      map[string]string `json:"diversification"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
