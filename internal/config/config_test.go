package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MARKET_DATA_PROVIDER", "")
	t.Setenv("MARKET_DATA_SYMBOLS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "mock", cfg.MarketData.Provider)
	assert.Equal(t, "3M", cfg.Analysis.HistoryPeriod)
	assert.Equal(t, 50, cfg.Analysis.MinBars)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.ChartTTL)
	assert.Equal(t, 3*time.Minute, cfg.Analysis.MoversTTL)
	assert.Equal(t, 3*time.Minute, cfg.Scheduler.MoversInterval)
	assert.Equal(t, PopularStocks, cfg.MarketData.Symbols)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("MARKET_DATA_SYMBOLS", " tcs, infy ,,")
	t.Setenv("SCHEDULER_REFRESH_INTERVAL", "45s")
	t.Setenv("SCHEDULER_MARKET_HOURS_ONLY", "true")
	t.Setenv("SCHEDULER_MOVERS_INTERVAL", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, []string{"TCS", "INFY"}, cfg.MarketData.Symbols)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.RefreshInterval)
	assert.True(t, cfg.Scheduler.MarketHoursOnly)
	assert.Zero(t, cfg.Scheduler.MoversInterval)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("NSE_TIMEOUT", "soon")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MARKET_DATA_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.API.Port)
	assert.Equal(t, 10*time.Second, cfg.MarketData.Timeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:        APIConfig{Port: 8080},
			Cache:      CacheConfig{Backend: "memory"},
			MarketData: MarketDataConfig{Provider: "mock"},
			Analysis:   AnalysisConfig{MinBars: 50},
			Scheduler:  SchedulerConfig{Enabled: true, RefreshInterval: time.Minute},
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.MarketData.Provider = "yahoo"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.MarketData.Provider = "nse"
	assert.Error(t, cfg.Validate(), "nse provider needs a base URL")

	cfg = valid()
	cfg.Analysis.MinBars = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Scheduler.RefreshInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.API.Port = 70000
	assert.Error(t, cfg.Validate())
}
