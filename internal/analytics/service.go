package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/cache"
	"github.com/mohamedkhairy/nse-analytics/internal/marketdata"
	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/indicator"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
)

// Defaults applied when Config fields are zero
const (
	DefaultMinBars     = 50
	DefaultAnalysisTTL = 5 * time.Minute
	DefaultQuoteTTL    = 30 * time.Second
	DefaultChartTTL    = 10 * time.Minute
	DefaultMoversTTL   = 3 * time.Minute
)

// TechnicalAnalysis is the technical analysis of one symbol's history
type TechnicalAnalysis struct {
	Symbol     string                 `json:"symbol"`
	Period     string                 `json:"period"`
	Bars       int                    `json:"bars"`
	LastPrice  indicator.Value        `json:"lastPrice"`
	Indicators indicator.IndicatorSet `json:"indicators"`
	Trailing   indicator.TrailingSet  `json:"trailing"`
	Signals    []indicator.Signal     `json:"signals"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Config configures a Service
type Config struct {
	MinBars     int
	AnalysisTTL time.Duration
	QuoteTTL    time.Duration
	ChartTTL    time.Duration
	MoversTTL   time.Duration
}

// Service computes technical analyses and portfolio valuations on top of
// a market data provider, caching results.
type Service struct {
	provider marketdata.Provider
	cache    cache.Cache
	cfg      Config
	now      func() time.Time
}

// NewService creates a new analytics service
func NewService(provider marketdata.Provider, c cache.Cache, cfg Config) *Service {
	if cfg.MinBars <= 0 {
		cfg.MinBars = DefaultMinBars
	}
	if cfg.AnalysisTTL <= 0 {
		cfg.AnalysisTTL = DefaultAnalysisTTL
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.ChartTTL <= 0 {
		cfg.ChartTTL = DefaultChartTTL
	}
	if cfg.MoversTTL <= 0 {
		cfg.MoversTTL = DefaultMoversTTL
	}
	return &Service{
		provider: provider,
		cache:    c,
		cfg:      cfg,
		now:      time.Now,
	}
}

// TechnicalCacheKey is the cache key of a symbol's analysis for a period
func TechnicalCacheKey(symbol, period string) string {
	return fmt.Sprintf("technical_analysis_%s_%s", symbol, period)
}

// QuoteCacheKey is the cache key of a symbol's latest quote
func QuoteCacheKey(symbol string) string {
	return "stock_quote_" + symbol
}

// Technical returns the technical analysis for symbol over period, serving
// it from the cache when fresh. The boolean reports a cache hit.
func (s *Service) Technical(ctx context.Context, symbol, period string) (*TechnicalAnalysis, bool, error) {
	sym, p, err := normalize(symbol, period)
	if err != nil {
		return nil, false, err
	}

	key := TechnicalCacheKey(sym, p)
	var cached TechnicalAnalysis
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		// A broken entry is recomputed rather than surfaced
		logger.Warn("Failed to read cached analysis",
			logger.String("key", key),
			logger.ErrorField(err),
		)
	}
	if found {
		logger.CacheRequests.WithLabelValues("hit").Inc()
		return &cached, true, nil
	}
	logger.CacheRequests.WithLabelValues("miss").Inc()

	analysis, err := s.compute(ctx, sym, p)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, key, analysis)
	return analysis, false, nil
}

// Refresh recomputes the analysis for symbol, bypassing and overwriting the cache
func (s *Service) Refresh(ctx context.Context, symbol, period string) (*TechnicalAnalysis, error) {
	sym, p, err := normalize(symbol, period)
	if err != nil {
		return nil, err
	}
	analysis, err := s.compute(ctx, sym, p)
	if err != nil {
		return nil, err
	}
	s.store(ctx, TechnicalCacheKey(sym, p), analysis)
	return analysis, nil
}

// Indicators runs the engine over caller-supplied closing prices
func (s *Service) Indicators(prices []float64) (*indicator.Analysis, error) {
	start := time.Now()
	analysis, err := indicator.Analyze(prices)
	logger.AnalysisDuration.WithLabelValues("request").Observe(time.Since(start).Seconds())
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("analytics", "invalid_input").Inc()
		return nil, err
	}
	countSignals(analysis.Signals)
	return analysis, nil
}

// Quote returns the latest quote for symbol, cached for QuoteTTL
func (s *Service) Quote(ctx context.Context, symbol string) (*models.Quote, bool, error) {
	sym := models.NormalizeSymbol(symbol)
	if err := models.ValidateSymbol(sym); err != nil {
		return nil, false, err
	}

	key := QuoteCacheKey(sym)
	var cached models.Quote
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, true, nil
	}

	quote, err := s.provider.Quote(ctx, sym)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, key, quote, s.cfg.QuoteTTL); err != nil {
		logger.Warn("Failed to cache quote", logger.String("symbol", sym), logger.ErrorField(err))
	}
	return quote, false, nil
}

// CacheStats reports usage of the underlying cache
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.cache.Stats(ctx)
}

// ClearCache drops every cached analysis and quote
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	logger.Info("Analysis cache cleared")
	return nil
}

// Provider returns the market data provider name
func (s *Service) Provider() string {
	return s.provider.Name()
}

func (s *Service) compute(ctx context.Context, symbol, period string) (*TechnicalAnalysis, error) {
	start := time.Now()
	defer func() {
		logger.AnalysisDuration.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	}()

	bars, err := s.provider.History(ctx, symbol, period)
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("analytics", "history").Inc()
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if len(bars) < s.cfg.MinBars {
		return nil, fmt.Errorf("%w: %s has %d bars, need %d",
			models.ErrInsufficientHistory, symbol, len(bars), s.cfg.MinBars)
	}

	result, err := indicator.Analyze(indicator.Closes(bars))
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("analytics", "invalid_input").Inc()
		return nil, fmt.Errorf("failed to analyze %s: %w", symbol, err)
	}
	trailing, err := indicator.ComputeTrailing(bars)
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("analytics", "invalid_input").Inc()
		return nil, fmt.Errorf("failed to analyze %s: %w", symbol, err)
	}
	countSignals(result.Signals)

	logger.Debug("Computed technical analysis",
		logger.String("symbol", symbol),
		logger.String("period", period),
		logger.Int("bars", len(bars)),
		logger.Int("signals", len(result.Signals)),
	)

	return &TechnicalAnalysis{
		Symbol:     symbol,
		Period:     period,
		Bars:       len(bars),
		LastPrice:  result.LastPrice,
		Indicators: result.Indicators,
		Trailing:   trailing,
		Signals:    result.Signals,
		Timestamp:  s.now().UTC(),
	}, nil
}

func (s *Service) store(ctx context.Context, key string, analysis *TechnicalAnalysis) {
	if err := s.cache.Set(ctx, key, analysis, s.cfg.AnalysisTTL); err != nil {
		logger.Warn("Failed to cache analysis", logger.String("key", key), logger.ErrorField(err))
	}
}

func normalize(symbol, period string) (string, string, error) {
	sym := models.NormalizeSymbol(symbol)
	if err := models.ValidateSymbol(sym); err != nil {
		return "", "", err
	}
	p, err := marketdata.NormalizePeriod(period)
	if err != nil {
		return "", "", err
	}
	return sym, p, nil
}

func countSignals(signals []indicator.Signal) {
	for _, sig := range signals {
		logger.SignalsEmitted.WithLabelValues(sig.Indicator, string(sig.Type)).Inc()
	}
}

// IsClientError reports whether err stems from bad caller input
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrInvalidSymbol) ||
		errors.Is(err, models.ErrInvalidPeriod) ||
		errors.Is(err, models.ErrInsufficientHistory) ||
		errors.Is(err, models.ErrInvalidQuantity) ||
		errors.Is(err, models.ErrInvalidPrice) ||
		errors.Is(err, models.ErrNoHoldings) ||
		errors.Is(err, models.ErrInvalidQuery) ||
		errors.Is(err, models.ErrInvalidLimit) ||
		errors.Is(err, indicator.ErrInvalidInput)
}
