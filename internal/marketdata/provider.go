package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedkhairy/nse-analytics/internal/config"
	"github.com/mohamedkhairy/nse-analytics/internal/models"
)

var (
	// ErrInvalidResponse is returned when the upstream payload lacks price data
	ErrInvalidResponse = errors.New("invalid response from market data provider")
	// ErrUnknownProvider is returned by NewProvider for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown market data provider")
)

// DefaultPeriod is the history window used when none is requested
const DefaultPeriod = "3M"

// Provider defines the interface for market data providers
type Provider interface {
	// Quote returns the latest quote for symbol
	Quote(ctx context.Context, symbol string) (*models.Quote, error)

	// History returns daily bars for the period, oldest first
	History(ctx context.Context, symbol string, period string) ([]models.Bar, error)

	// Name returns the name/type of the provider (e.g., "mock", "nse")
	Name() string
}

// SymbolLister is implemented by providers with a fixed symbol universe
type SymbolLister interface {
	Symbols() []string
}

// Watchlist returns the configured symbols that provider can serve. When
// nothing is configured it falls back to the provider's own universe.
// Providers that cannot list symbols keep the configured list as is.
func Watchlist(provider Provider, configured []string) []string {
	lister, ok := provider.(SymbolLister)
	if !ok {
		return configured
	}
	known := lister.Symbols()
	if len(configured) == 0 {
		return known
	}

	universe := make(map[string]struct{}, len(known))
	for _, s := range known {
		universe[s] = struct{}{}
	}
	watchlist := make([]string, 0, len(configured))
	for _, s := range configured {
		if _, ok := universe[models.NormalizeSymbol(s)]; ok {
			watchlist = append(watchlist, models.NormalizeSymbol(s))
		}
	}
	return watchlist
}

var periodDays = map[string]int{
	"1M": 30,
	"3M": 90,
	"6M": 180,
	"1Y": 365,
}

// PeriodDays maps a history period ("1M", "3M", "6M", "1Y") to calendar days.
// An empty period selects DefaultPeriod.
func PeriodDays(period string) (int, error) {
	p := strings.ToUpper(strings.TrimSpace(period))
	if p == "" {
		p = DefaultPeriod
	}
	days, ok := periodDays[p]
	if !ok {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidPeriod, period)
	}
	return days, nil
}

// NormalizePeriod returns the canonical spelling of a valid period
func NormalizePeriod(period string) (string, error) {
	if _, err := PeriodDays(period); err != nil {
		return "", err
	}
	p := strings.ToUpper(strings.TrimSpace(period))
	if p == "" {
		p = DefaultPeriod
	}
	return p, nil
}

// NewProvider creates the provider selected by cfg.MarketData.Provider
func NewProvider(cfg config.MarketDataConfig) (Provider, error) {
	switch cfg.Provider {
	case "mock", "":
		return NewMockProvider(MockConfig{}), nil
	case "nse":
		return NewNSEProvider(NSEConfig{
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			Retries:    cfg.Retries,
			RetryDelay: cfg.RetryDelay,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
