package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Movers list limits
const (
	DefaultMoversLimit = 10
	MaxMoversLimit     = 50
)

// MoversCacheKey holds the full gainers and losers lists of the watchlist
const MoversCacheKey = "market_movers"

// ChartCacheKey is the cache key of a symbol's chart for a period
func ChartCacheKey(symbol, period string) string {
	return fmt.Sprintf("chart_%s_%s", symbol, period)
}

// ChartMeta summarises the bars of a Chart
type ChartMeta struct {
	TotalPoints   int     `json:"totalPoints"`
	FirstPrice    float64 `json:"firstPrice"`
	LastPrice     float64 `json:"lastPrice"`
	PriceChange   float64 `json:"priceChange"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
}

// Chart is the daily price history of one symbol
type Chart struct {
	Symbol    string       `json:"symbol"`
	Period    string       `json:"period"`
	Bars      []models.Bar `json:"data"`
	Meta      ChartMeta    `json:"meta"`
	Timestamp time.Time    `json:"timestamp"`
}

// Movers ranks watchlist quotes by their daily change
type Movers struct {
	Gainers   []models.Quote `json:"gainers"`
	Losers    []models.Quote `json:"losers"`
	Scanned   int            `json:"scanned"`
	Failed    int            `json:"failed"`
	Timestamp time.Time      `json:"timestamp"`
}

// Chart returns the bars of symbol over period, cached for ChartTTL.
// The boolean reports a cache hit.
func (s *Service) Chart(ctx context.Context, symbol, period string) (*Chart, bool, error) {
	sym, p, err := normalize(symbol, period)
	if err != nil {
		return nil, false, err
	}

	key := ChartCacheKey(sym, p)
	var cached Chart
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		logger.CacheRequests.WithLabelValues("hit").Inc()
		return &cached, true, nil
	}
	logger.CacheRequests.WithLabelValues("miss").Inc()

	bars, err := s.provider.History(ctx, sym, p)
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("analytics", "history").Inc()
		return nil, false, fmt.Errorf("failed to fetch history for %s: %w", sym, err)
	}

	chart := &Chart{
		Symbol:    sym,
		Period:    p,
		Bars:      bars,
		Meta:      chartMeta(bars),
		Timestamp: s.now().UTC(),
	}
	if err := s.cache.Set(ctx, key, chart, s.cfg.ChartTTL); err != nil {
		logger.Warn("Failed to cache chart", logger.String("key", key), logger.ErrorField(err))
	}
	return chart, false, nil
}

func chartMeta(bars []models.Bar) ChartMeta {
	meta := ChartMeta{TotalPoints: len(bars)}
	if len(bars) == 0 {
		return meta
	}

	first := decimal.NewFromFloat(bars[0].Close)
	last := decimal.NewFromFloat(bars[len(bars)-1].Close)
	change := last.Sub(first)

	meta.FirstPrice = bars[0].Close
	meta.LastPrice = bars[len(bars)-1].Close
	meta.PriceChange = change.Round(2).InexactFloat64()
	if !first.IsZero() {
		meta.ChangePercent = change.Div(first).Mul(hundred).Round(2).InexactFloat64()
	}
	meta.High = bars[0].High
	meta.Low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > meta.High {
			meta.High = b.High
		}
		if b.Low < meta.Low {
			meta.Low = b.Low
		}
	}
	return meta
}

// Movers returns the top gainers and losers among symbols, at most limit
// of each. The ranked lists are cached for MoversTTL.
func (s *Service) Movers(ctx context.Context, symbols []string, limit int) (*Movers, bool, error) {
	if limit == 0 {
		limit = DefaultMoversLimit
	}
	if limit < 0 || limit > MaxMoversLimit {
		return nil, false, fmt.Errorf("%w: must be between 1 and %d, got %d", models.ErrInvalidLimit, MaxMoversLimit, limit)
	}

	var cached Movers
	if found, err := s.cache.Get(ctx, MoversCacheKey, &cached); err == nil && found {
		logger.CacheRequests.WithLabelValues("hit").Inc()
		return cached.truncate(limit), true, nil
	}
	logger.CacheRequests.WithLabelValues("miss").Inc()

	movers, err := s.RefreshMovers(ctx, symbols)
	if err != nil {
		return nil, false, err
	}
	return movers.truncate(limit), false, nil
}

// RefreshMovers ranks the current quotes of symbols and overwrites the
// cached lists. Symbols whose quote cannot be fetched are skipped; it fails
// only when none can be fetched.
func (s *Service) RefreshMovers(ctx context.Context, symbols []string) (*Movers, error) {
	quotes, failed, err := s.quotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	movers := &Movers{
		Gainers:   make([]models.Quote, 0),
		Losers:    make([]models.Quote, 0),
		Scanned:   len(symbols),
		Failed:    failed,
		Timestamp: s.now().UTC(),
	}
	for _, q := range quotes {
		switch {
		case q.ChangePercent > 0:
			movers.Gainers = append(movers.Gainers, q)
		case q.ChangePercent < 0:
			movers.Losers = append(movers.Losers, q)
		}
	}
	sort.SliceStable(movers.Gainers, func(i, j int) bool {
		return movers.Gainers[i].ChangePercent > movers.Gainers[j].ChangePercent
	})
	sort.SliceStable(movers.Losers, func(i, j int) bool {
		return movers.Losers[i].ChangePercent < movers.Losers[j].ChangePercent
	})

	if err := s.cache.Set(ctx, MoversCacheKey, movers, s.cfg.MoversTTL); err != nil {
		logger.Warn("Failed to cache movers", logger.ErrorField(err))
	}
	return movers, nil
}

func (m *Movers) truncate(limit int) *Movers {
	out := *m
	if len(out.Gainers) > limit {
		out.Gainers = out.Gainers[:limit]
	}
	if len(out.Losers) > limit {
		out.Losers = out.Losers[:limit]
	}
	return &out
}

// Search returns the quotes of the symbols whose ticker or company name
// contains query, case-insensitively. Exact ticker matches come first.
func (s *Service) Search(ctx context.Context, symbols []string, query string) ([]models.Quote, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, models.ErrInvalidQuery
	}

	quotes, _, err := s.quotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	results := make([]models.Quote, 0)
	for _, quote := range quotes {
		if strings.Contains(strings.ToLower(quote.Symbol), q) ||
			strings.Contains(strings.ToLower(quote.Name), q) {
			results = append(results, quote)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return strings.ToLower(results[i].Symbol) == q && strings.ToLower(results[j].Symbol) != q
	})
	return results, nil
}

// quotes fetches the quotes of symbols in watchlist order, dropping the
// ones that fail. An error is returned when symbols is non-empty and every
// fetch failed, or when ctx ends.
func (s *Service) quotes(ctx context.Context, symbols []string) ([]models.Quote, int, error) {
	fetched := make([]*models.Quote, len(symbols))
	var (
		mu       sync.Mutex
		failed   int
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxQuoteFetches)
	for i, symbol := range symbols {
		g.Go(func() error {
			quote, _, err := s.Quote(gctx, symbol)
			if err != nil {
				logger.Warn("Skipping symbol without quote",
					logger.String("symbol", symbol),
					logger.ErrorField(err),
				)
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			fetched[i] = quote
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if len(symbols) > 0 && failed == len(symbols) {
		// The cause belongs to one symbol and is not wrapped
		return nil, failed, fmt.Errorf("failed to fetch quotes for %d symbols: %v", failed, firstErr)
	}

	quotes := make([]models.Quote, 0, len(symbols)-failed)
	for _, q := range fetched {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes, failed, nil
}
