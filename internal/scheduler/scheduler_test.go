package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   map[string]int
	fail    map[string]bool
	block   chan struct{}
	started chan struct{}
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{calls: make(map[string]int), fail: make(map[string]bool)}
}

func (f *fakeAnalyzer) Refresh(ctx context.Context, symbol, period string) (*analytics.TechnicalAnalysis, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.fail[symbol] {
		return nil, errors.New("upstream unavailable")
	}
	return &analytics.TechnicalAnalysis{Symbol: symbol, Period: period}, nil
}

func (f *fakeAnalyzer) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

// moversAnalyzer also ranks movers
type moversAnalyzer struct {
	*fakeAnalyzer
	moversCalls atomic.Int32
	err         error
	symbols     []string
}

func (m *moversAnalyzer) RefreshMovers(ctx context.Context, symbols []string) (*analytics.Movers, error) {
	m.moversCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	m.symbols = symbols
	return &analytics.Movers{Scanned: len(symbols)}, nil
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	symbols []string
}

func (f *fakeBroadcaster) BroadcastAnalysis(symbol string, data interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.symbols = append(f.symbols, symbol)
	return 2
}

type fakeCleaner struct {
	calls atomic.Int32
}

func (f *fakeCleaner) CleanExpired() int {
	f.calls.Add(1)
	return 3
}

// Monday 2024-01-15 12:30 IST
var marketHours = time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)

// Sunday 2024-01-14 12:30 IST
var weekend = time.Date(2024, 1, 14, 7, 0, 0, 0, time.UTC)

func testConfig(now time.Time) Config {
	return Config{
		Symbols:         []string{"TCS", "INFY", "ITC"},
		Period:          "3M",
		RefreshInterval: time.Hour,
		CleanupInterval: time.Hour,
		Concurrency:     2,
		Now:             func() time.Time { return now },
	}
}

func TestTriggerRefresh(t *testing.T) {
	analyzer := newFakeAnalyzer()
	analyzer.fail["INFY"] = true
	broadcaster := &fakeBroadcaster{}
	s := New(testConfig(marketHours), analyzer, broadcaster, nil)

	result, err := s.TriggerRefresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Refreshed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 4, result.Broadcasts)
	assert.Equal(t, "manual", result.Trigger)
	assert.ElementsMatch(t, []string{"TCS", "ITC"}, broadcaster.symbols)
	for _, symbol := range []string{"TCS", "INFY", "ITC"} {
		assert.Equal(t, 1, analyzer.callCount(symbol))
	}

	status := s.Status()
	assert.Equal(t, int64(1), status.RefreshRuns)
	require.NotNil(t, status.LastRefresh)
	assert.Equal(t, 2, status.LastRefresh.Refreshed)
}

func TestTriggerRefresh_NilBroadcaster(t *testing.T) {
	s := New(testConfig(marketHours), newFakeAnalyzer(), nil, nil)

	result, err := s.TriggerRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Refreshed)
	assert.Equal(t, 0, result.Broadcasts)
}

func TestTriggerRefresh_Cancelled(t *testing.T) {
	analyzer := newFakeAnalyzer()
	analyzer.block = make(chan struct{})
	s := New(testConfig(marketHours), analyzer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.TriggerRefresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTriggerRefresh_Overlap(t *testing.T) {
	analyzer := newFakeAnalyzer()
	analyzer.block = make(chan struct{})
	analyzer.started = make(chan struct{}, 1)
	s := New(testConfig(marketHours), analyzer, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.TriggerRefresh(context.Background())
		done <- err
	}()

	<-analyzer.started
	_, err := s.TriggerRefresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(analyzer.block)
	require.NoError(t, <-done)
}

func TestStart_RefreshesImmediately(t *testing.T) {
	analyzer := newFakeAnalyzer()
	s := New(testConfig(marketHours), analyzer, nil, nil)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return s.Status().RefreshRuns == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Error(t, s.Start(), "a stopped scheduler cannot restart")
}

func TestStart_MarketHoursOnlySkipsWhenClosed(t *testing.T) {
	analyzer := newFakeAnalyzer()
	cfg := testConfig(weekend)
	cfg.MarketHoursOnly = true
	s := New(cfg, analyzer, nil, nil)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.Status().SkippedRuns == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, 0, analyzer.callCount("TCS"))
	assert.Equal(t, int64(0), s.Status().RefreshRuns)

	// Manual triggers ignore market hours
	_, err := s.TriggerRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.callCount("TCS"))
}

func TestCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{}
	cfg := testConfig(marketHours)
	cfg.CleanupInterval = 20 * time.Millisecond
	s := New(cfg, newFakeAnalyzer(), nil, cleaner)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return cleaner.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	status := s.Status()
	require.NotNil(t, status.LastCleanup)
	assert.Equal(t, 3, status.LastCleaned)
}

func TestCleanCache_NoCleaner(t *testing.T) {
	s := New(testConfig(marketHours), newFakeAnalyzer(), nil, nil)
	assert.Equal(t, 0, s.CleanCache())
	assert.Nil(t, s.Status().LastCleanup)
}

func TestStatus(t *testing.T) {
	s := New(testConfig(marketHours), newFakeAnalyzer(), nil, nil)
	status := s.Status()

	assert.False(t, status.Running)
	assert.True(t, status.MarketOpen)
	assert.Equal(t, SessionMarket, status.Session)
	assert.Equal(t, 3, status.Symbols)
	assert.Equal(t, "1h0m0s", status.RefreshInterval)
	assert.Nil(t, status.LastRefresh)
}

func TestNew_PanicsWithoutAnalyzer(t *testing.T) {
	assert.Panics(t, func() { New(Config{}, nil, nil, nil) })
}

func TestStart_RefreshesMoversImmediately(t *testing.T) {
	analyzer := &moversAnalyzer{fakeAnalyzer: newFakeAnalyzer()}
	cfg := testConfig(marketHours)
	cfg.MoversInterval = time.Hour
	s := New(cfg, analyzer, nil, nil)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.Status().LastMovers != nil }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), analyzer.moversCalls.Load())
	assert.Equal(t, cfg.Symbols, analyzer.symbols)
	assert.Equal(t, "1h0m0s", s.Status().MoversInterval)
}

func TestMoversJob_Ticks(t *testing.T) {
	analyzer := &moversAnalyzer{fakeAnalyzer: newFakeAnalyzer()}
	cfg := testConfig(marketHours)
	cfg.MoversInterval = 20 * time.Millisecond
	s := New(cfg, analyzer, nil, nil)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return analyzer.moversCalls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestMoversJob_MarketHoursOnly(t *testing.T) {
	analyzer := &moversAnalyzer{fakeAnalyzer: newFakeAnalyzer()}
	cfg := testConfig(weekend)
	cfg.MarketHoursOnly = true
	cfg.MoversInterval = time.Hour
	s := New(cfg, analyzer, nil, nil)

	s.scheduledMovers()
	assert.Equal(t, int32(0), analyzer.moversCalls.Load())

	// Direct calls ignore market hours
	require.NoError(t, s.RefreshMovers(context.Background()))
	assert.Equal(t, int32(1), analyzer.moversCalls.Load())
}

func TestRefreshMovers_Error(t *testing.T) {
	analyzer := &moversAnalyzer{fakeAnalyzer: newFakeAnalyzer(), err: errors.New("no quotes")}
	s := New(testConfig(marketHours), analyzer, nil, nil)

	assert.EqualError(t, s.RefreshMovers(context.Background()), "no quotes")
	assert.Nil(t, s.Status().LastMovers)
}

func TestRefreshMovers_WithoutRefresher(t *testing.T) {
	s := New(testConfig(marketHours), newFakeAnalyzer(), nil, nil)

	assert.NoError(t, s.RefreshMovers(context.Background()))
	assert.Nil(t, s.Status().LastMovers)
}
