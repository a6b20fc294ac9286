package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrRefreshInProgress is returned by TriggerRefresh while another refresh runs
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Analyzer recomputes an analysis and overwrites its cache entry
type Analyzer interface {
	Refresh(ctx context.Context, symbol, period string) (*analytics.TechnicalAnalysis, error)
}

// Broadcaster publishes refreshed analyses to live subscribers
type Broadcaster interface {
	BroadcastAnalysis(symbol string, data interface{}) int
}

// MoversRefresher recomputes the watchlist gainers and losers
type MoversRefresher interface {
	RefreshMovers(ctx context.Context, symbols []string) (*analytics.Movers, error)
}

// Cleaner evicts expired cache entries
type Cleaner interface {
	CleanExpired() int
}

// Config holds configuration for the scheduler
type Config struct {
	Symbols         []string
	Period          string
	RefreshInterval time.Duration
	CleanupInterval time.Duration // <= 0 disables the cleanup job
	MoversInterval  time.Duration // <= 0 disables the movers job
	MarketHoursOnly bool
	Concurrency     int // Parallel symbol refreshes (default: 4)
	Now             func() time.Time
}

// RunResult describes one refresh run
type RunResult struct {
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Refreshed  int           `json:"refreshed"`
	Failed     int           `json:"failed"`
	Broadcasts int           `json:"broadcasts"`
	Trigger    string        `json:"trigger"`
}

// Status is a snapshot of the scheduler state
type Status struct {
	Running         bool          `json:"running"`
	MarketOpen      bool          `json:"marketOpen"`
	Session         MarketSession `json:"session"`
	MarketHoursOnly bool          `json:"marketHoursOnly"`
	Symbols         int           `json:"symbols"`
	RefreshInterval string        `json:"refreshInterval"`
	CleanupInterval string        `json:"cleanupInterval"`
	MoversInterval  string        `json:"moversInterval"`
	RefreshRuns     int64         `json:"refreshRuns"`
	SkippedRuns     int64         `json:"skippedRuns"`
	LastRefresh     *RunResult    `json:"lastRefresh,omitempty"`
	LastCleanup     *time.Time    `json:"lastCleanup,omitempty"`
	LastCleaned     int           `json:"lastCleaned"`
	LastMovers      *time.Time    `json:"lastMovers,omitempty"`
}

// Scheduler periodically refreshes watchlist analyses and cleans the cache
type Scheduler struct {
	config      Config
	analyzer    Analyzer
	broadcaster Broadcaster
	cleaner     Cleaner
	movers      MoversRefresher
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	refreshMu   sync.Mutex // held for the duration of a refresh run

	statsMu     sync.RWMutex
	refreshRuns int64
	skippedRuns int64
	lastRefresh *RunResult
	lastCleanup *time.Time
	lastCleaned int
	lastMovers  *time.Time
}

// New creates a scheduler. broadcaster and cleaner may be nil. The movers
// job runs only when analyzer also implements MoversRefresher.
func New(cfg Config, analyzer Analyzer, broadcaster Broadcaster, cleaner Cleaner) *Scheduler {
	if analyzer == nil {
		panic("analyzer cannot be nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	movers, _ := analyzer.(MoversRefresher)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:      cfg,
		analyzer:    analyzer,
		broadcaster: broadcaster,
		cleaner:     cleaner,
		movers:      movers,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the scheduled jobs. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler has been stopped")
	}
	s.running = true
	s.mu.Unlock()

	logger.Info("Starting scheduler",
		logger.Int("symbols", len(s.config.Symbols)),
		logger.Duration("refresh_interval", s.config.RefreshInterval),
		logger.Duration("cleanup_interval", s.config.CleanupInterval),
		logger.Bool("market_hours_only", s.config.MarketHoursOnly),
	)

	s.wg.Add(1)
	go s.run()

	return nil
}

// Stop stops the scheduled jobs and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	logger.Info("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
	logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	refreshTicker := time.NewTicker(s.config.RefreshInterval)
	defer refreshTicker.Stop()

	// A nil channel never fires, which disables cleanup
	var cleanupC <-chan time.Time
	if s.cleaner != nil && s.config.CleanupInterval > 0 {
		cleanupTicker := time.NewTicker(s.config.CleanupInterval)
		defer cleanupTicker.Stop()
		cleanupC = cleanupTicker.C
	}

	var moversC <-chan time.Time
	if s.movers != nil && s.config.MoversInterval > 0 {
		moversTicker := time.NewTicker(s.config.MoversInterval)
		defer moversTicker.Stop()
		moversC = moversTicker.C
	}

	// Warm the cache immediately
	s.scheduledRefresh()
	if moversC != nil {
		s.scheduledMovers()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-refreshTicker.C:
			s.scheduledRefresh()
		case <-cleanupC:
			s.CleanCache()
		case <-moversC:
			s.scheduledMovers()
		}
	}
}

func (s *Scheduler) scheduledRefresh() {
	if s.config.MarketHoursOnly && !IsMarketOpen(s.config.Now()) {
		s.statsMu.Lock()
		s.skippedRuns++
		s.statsMu.Unlock()
		logger.SchedulerRuns.WithLabelValues("refresh", "skipped").Inc()
		logger.Debug("Market closed, skipping refresh")
		return
	}

	if _, err := s.refresh(s.ctx, "schedule"); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Scheduled refresh failed", logger.ErrorField(err))
	}
}

func (s *Scheduler) scheduledMovers() {
	if s.config.MarketHoursOnly && !IsMarketOpen(s.config.Now()) {
		logger.SchedulerRuns.WithLabelValues("movers", "skipped").Inc()
		return
	}
	if err := s.RefreshMovers(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Scheduled movers refresh failed", logger.ErrorField(err))
	}
}

// RefreshMovers recomputes the watchlist gainers and losers. It is a no-op
// when the analyzer cannot rank movers.
func (s *Scheduler) RefreshMovers(ctx context.Context) error {
	if s.movers == nil {
		return nil
	}
	movers, err := s.movers.RefreshMovers(ctx, s.config.Symbols)
	if err != nil {
		logger.SchedulerRuns.WithLabelValues("movers", "error").Inc()
		return err
	}
	now := s.config.Now()

	s.statsMu.Lock()
	s.lastMovers = &now
	s.statsMu.Unlock()

	logger.SchedulerRuns.WithLabelValues("movers", "success").Inc()
	logger.Debug("Movers refreshed",
		logger.Int("gainers", len(movers.Gainers)),
		logger.Int("losers", len(movers.Losers)),
	)
	return nil
}

// TriggerRefresh runs a refresh immediately, ignoring market hours
func (s *Scheduler) TriggerRefresh(ctx context.Context) (*RunResult, error) {
	return s.refresh(ctx, "manual")
}

func (s *Scheduler) refresh(ctx context.Context, trigger string) (*RunResult, error) {
	if !s.refreshMu.TryLock() {
		logger.SchedulerRuns.WithLabelValues("refresh", "overlap").Inc()
		return nil, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	result := &RunResult{StartedAt: s.config.Now(), Trigger: trigger}
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	for _, symbol := range s.config.Symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analysis, err := s.analyzer.Refresh(gctx, symbol, s.config.Period)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Failed to refresh analysis",
					logger.String("symbol", symbol),
					logger.ErrorField(err),
				)
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return nil
			}

			sent := 0
			if s.broadcaster != nil {
				sent = s.broadcaster.BroadcastAnalysis(analysis.Symbol, analysis)
			}

			mu.Lock()
			result.Refreshed++
			result.Broadcasts += sent
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	result.Duration = time.Since(start)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "cancelled"
	case result.Failed > 0 && result.Refreshed == 0:
		outcome = "error"
	case result.Failed > 0:
		outcome = "partial"
	}
	logger.SchedulerRuns.WithLabelValues("refresh", outcome).Inc()

	s.statsMu.Lock()
	s.refreshRuns++
	s.lastRefresh = result
	s.statsMu.Unlock()

	logger.Info("Refresh run completed",
		logger.String("trigger", trigger),
		logger.Int("refreshed", result.Refreshed),
		logger.Int("failed", result.Failed),
		logger.Int("broadcasts", result.Broadcasts),
		logger.Duration("duration", result.Duration),
	)

	return result, err
}

// CleanCache evicts expired cache entries and returns how many were removed
func (s *Scheduler) CleanCache() int {
	if s.cleaner == nil {
		return 0
	}
	removed := s.cleaner.CleanExpired()
	now := s.config.Now()

	s.statsMu.Lock()
	s.lastCleanup = &now
	s.lastCleaned = removed
	s.statsMu.Unlock()

	logger.SchedulerRuns.WithLabelValues("cleanup", "success").Inc()
	logger.Debug("Cache cleanup completed", logger.Int("removed", removed))
	return removed
}

// Status returns a snapshot of the scheduler state
func (s *Scheduler) Status() Status {
	now := s.config.Now()
	status := Status{
		Running:         s.IsRunning(),
		MarketOpen:      IsMarketOpen(now),
		Session:         GetMarketSession(now),
		MarketHoursOnly: s.config.MarketHoursOnly,
		Symbols:         len(s.config.Symbols),
		RefreshInterval: s.config.RefreshInterval.String(),
		CleanupInterval: s.config.CleanupInterval.String(),
		MoversInterval:  s.config.MoversInterval.String(),
	}

	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	status.RefreshRuns = s.refreshRuns
	status.SkippedRuns = s.skippedRuns
	if s.lastRefresh != nil {
		last := *s.lastRefresh
		status.LastRefresh = &last
	}
	if s.lastCleanup != nil {
		last := *s.lastCleanup
		status.LastCleanup = &last
	}
	status.LastCleaned = s.lastCleaned
	if s.lastMovers != nil {
		last := *s.lastMovers
		status.LastMovers = &last
	}
	return status
}
