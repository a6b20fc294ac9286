package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
)

// defaultBasePrices seeds the mock with approximate NSE prices
var defaultBasePrices = map[string]float64{
	"RELIANCE":   2450.00,
	"TCS":        3650.00,
	"HDFCBANK":   1580.00,
	"INFY":       1420.00,
	"HINDUNILVR": 2380.00,
	"ICICIBANK":  1050.00,
	"KOTAKBANK":  1760.00,
	"BHARTIARTL": 1180.00,
	"ITC":        440.00,
	"SBIN":       610.00,
	"BAJFINANCE": 6900.00,
	"LICI":       920.00,
	"LT":         3400.00,
	"HCLTECH":    1450.00,
	"ASIANPAINT": 2900.00,
	"AXISBANK":   1080.00,
	"MARUTI":     10500.00,
	"SUNPHARMA":  1250.00,
	"TITAN":      3300.00,
	"ULTRACEMCO": 9800.00,
}

var mockNames = map[string]string{
	"RELIANCE": "Reliance Industries Limited",
	"TCS":      "Tata Consultancy Services Limited",
	"HDFCBANK": "HDFC Bank Limited",
	"INFY":     "Infosys Limited",
}

// MockConfig configures a MockProvider
type MockConfig struct {
	// Seed drives the deterministic RNG; zero uses a fixed default
	Seed int64
	// BasePrices overrides the built-in symbol universe when non-empty
	BasePrices map[string]float64
	// Now overrides the clock used for bar dates and quote timestamps
	Now func() time.Time
}

// MockProvider serves synthetic quotes and history for a fixed symbol universe
type MockProvider struct {
	mu         sync.Mutex
	rng        *rand.Rand
	basePrices map[string]float64
	now        func() time.Time
}

// NewMockProvider creates a new mock provider
func NewMockProvider(cfg MockConfig) *MockProvider {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	prices := cfg.BasePrices
	if len(prices) == 0 {
		prices = defaultBasePrices
	}
	basePrices := make(map[string]float64, len(prices))
	for symbol, price := range prices {
		basePrices[models.NormalizeSymbol(symbol)] = price
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MockProvider{
		rng:        rand.New(rand.NewSource(seed)),
		basePrices: basePrices,
		now:        now,
	}
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return "mock"
}

// Symbols returns the symbols the mock knows about, sorted
func (m *MockProvider) Symbols() []string {
	symbols := make([]string, 0, len(m.basePrices))
	for symbol := range m.basePrices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func (m *MockProvider) basePrice(symbol string) (string, float64, error) {
	s := models.NormalizeSymbol(symbol)
	if err := models.ValidateSymbol(s); err != nil {
		return "", 0, err
	}
	base, ok := m.basePrices[s]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", models.ErrSymbolNotFound, s)
	}
	return s, base, nil
}

// Quote implements Provider
func (m *MockProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, base, err := m.basePrice(symbol)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	changePercent := (m.rng.Float64() - 0.5) * 4
	spread := m.rng.Float64() * 0.02
	volume := int64(m.rng.Intn(5_000_000)) + 500_000
	m.mu.Unlock()

	price := round2(base * (1 + changePercent/100))
	name := mockNames[s]
	if name == "" {
		name = s
	}
	return &models.Quote{
		Symbol:        s,
		Name:          name,
		Price:         price,
		Change:        round2(price - base),
		ChangePercent: round2(changePercent),
		Open:          base,
		High:          round2(price * (1 + spread)),
		Low:           round2(price * (1 - spread)),
		Volume:        volume,
		Sector:        "N/A",
		Industry:      "N/A",
		LastUpdated:   m.now().UTC(),
	}, nil
}

// History implements Provider
func (m *MockProvider) History(ctx context.Context, symbol string, period string) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days, err := PeriodDays(period)
	if err != nil {
		return nil, err
	}
	_, base, err := m.basePrice(symbol)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return GenerateHistory(m.rng, base, days, m.now()), nil
}
