package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mohamedkhairy/nse-analytics/internal/config"
)

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache stores JSON-encodable values with a time-to-live
type Cache interface {
	// Get decodes the value stored under key into dest.
	// It reports false when the key is missing or expired.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key. A non-positive ttl uses the cache default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the cache
	Clear(ctx context.Context) error

	// Stats reports key count and hit ratio
	Stats(ctx context.Context) (Stats, error)

	// Close releases background resources
	Close() error
}

// Stats is a snapshot of cache usage
type Stats struct {
	Backend string  `json:"backend"`
	Keys    int     `json:"keys"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// New creates the cache selected by cfg.Cache.Backend
func New(cfg *config.Config) (Cache, error) {
	switch cfg.Cache.Backend {
	case "memory", "":
		return NewMemoryCache(cfg.Cache.DefaultTTL, cfg.Cache.CleanupInterval), nil
	case "redis":
		return NewRedisCache(cfg.Redis, cfg.Cache.DefaultTTL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Cache.Backend)
	}
}

func encode(value interface{}) ([]byte, error) {
	data, err := sonic.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest interface{}) error {
	if err := sonic.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
