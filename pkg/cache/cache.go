package cache

import (
	"fmt"
	"time"

	"github.com/bitechdev/DataProvider/pkg/config"
)

// NewProviderFromConfig builds the provider named by cfg.Provider. A disabled
// cache returns nil, nil.
func NewProviderFromConfig(cfg config.CacheConfig) (Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := defaultOptions()
	if cfg.TTL > 0 {
		opts.DefaultTTL = cfg.TTL
	}

	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(opts), nil
	case "redis":
		p, err := NewRedisProvider(cfg.Redis, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis provider: %w", err)
		}
		return p, nil
	case "memcache":
		p, err := NewMemcacheProvider(cfg.Memcache, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Memcache provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}

// TTLOrDefault returns ttl, or 30s when ttl is not positive
func TTLOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 30 * time.Second
	}
	return ttl
}
