package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PopularStocks is the default NSE watchlist
var PopularStocks = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "HINDUNILVR",
	"ICICIBANK", "KOTAKBANK", "BHARTIARTL", "ITC", "SBIN",
	"BAJFINANCE", "LICI", "LT", "HCLTECH", "ASIANPAINT",
	"AXISBANK", "MARUTI", "SUNPHARMA", "TITAN", "ULTRACEMCO",
}

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	API        APIConfig
	Cache      CacheConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
	Analysis   AnalysisConfig
	Scheduler  SchedulerConfig
	WSGateway  WSGatewayConfig
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port            int
	RateLimitRPS    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// CacheConfig holds analysis cache configuration
type CacheConfig struct {
	Backend         string // "memory" or "redis"
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
}

// MarketDataConfig holds market data provider configuration
type MarketDataConfig struct {
	Provider   string // "mock" or "nse"
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Symbols    []string
}

// AnalysisConfig holds technical analysis configuration
type AnalysisConfig struct {
	HistoryPeriod string
	MinBars       int
	CacheTTL      time.Duration
	QuoteTTL      time.Duration
	ChartTTL      time.Duration
	MoversTTL     time.Duration
}

// SchedulerConfig holds refresh scheduler configuration
type SchedulerConfig struct {
	Enabled         bool
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	MoversInterval  time.Duration
	MarketHoursOnly bool
}

// WSGatewayConfig holds WebSocket gateway configuration
type WSGatewayConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxConnections int
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 5000),
			RateLimitRPS:    getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			Backend:         getEnv("CACHE_BACKEND", "memory"),
			DefaultTTL:      getEnvAsDuration("CACHE_DEFAULT_TTL", 1*time.Minute),
			CleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "nse:"),
		},
		MarketData: MarketDataConfig{
			Provider:   getEnv("MARKET_DATA_PROVIDER", "mock"),
			BaseURL:    getEnv("NSE_BASE_URL", "https://www.nseindia.com"),
			Timeout:    getEnvAsDuration("NSE_TIMEOUT", 10*time.Second),
			Retries:    getEnvAsInt("NSE_RETRIES", 3),
			RetryDelay: getEnvAsDuration("NSE_RETRY_DELAY", 1*time.Second),
			Symbols:    getEnvAsStringSlice("MARKET_DATA_SYMBOLS", PopularStocks),
		},
		Analysis: AnalysisConfig{
			HistoryPeriod: getEnv("ANALYSIS_HISTORY_PERIOD", "3M"),
			MinBars:       getEnvAsInt("ANALYSIS_MIN_BARS", 50),
			CacheTTL:      getEnvAsDuration("ANALYSIS_CACHE_TTL", 5*time.Minute),
			QuoteTTL:      getEnvAsDuration("ANALYSIS_QUOTE_TTL", 30*time.Second),
			ChartTTL:      getEnvAsDuration("ANALYSIS_CHART_TTL", 10*time.Minute),
			MoversTTL:     getEnvAsDuration("ANALYSIS_MOVERS_TTL", 3*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getEnvAsBool("SCHEDULER_ENABLED", true),
			RefreshInterval: getEnvAsDuration("SCHEDULER_REFRESH_INTERVAL", 2*time.Minute),
			CleanupInterval: getEnvAsDuration("SCHEDULER_CLEANUP_INTERVAL", 10*time.Minute),
			MoversInterval:  getEnvAsDuration("SCHEDULER_MOVERS_INTERVAL", 3*time.Minute),
			MarketHoursOnly: getEnvAsBool("SCHEDULER_MARKET_HOURS_ONLY", false),
		},
		WSGateway: WSGatewayConfig{
			ReadTimeout:    getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
			MaxConnections: getEnvAsInt("WS_MAX_CONNECTIONS", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.API.Port)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend)
	}
	switch c.MarketData.Provider {
	case "mock":
	case "nse":
		if c.MarketData.BaseURL == "" {
			return fmt.Errorf("NSE_BASE_URL is required when MARKET_DATA_PROVIDER=nse")
		}
	default:
		return fmt.Errorf("MARKET_DATA_PROVIDER must be mock or nse, got %q", c.MarketData.Provider)
	}
	if c.Analysis.MinBars < 1 {
		return fmt.Errorf("ANALYSIS_MIN_BARS must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.RefreshInterval <= 0 {
		return fmt.Errorf("SCHEDULER_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
