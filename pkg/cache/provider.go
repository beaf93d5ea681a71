package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Cache.Get when the key is absent or expired
var ErrNotFound = errors.New("cache: key not found")

// Provider defines the interface that all cache providers must implement.
type Provider interface {
	// Get retrieves a value from the cache by key.
	// Returns nil, false if key doesn't exist or is expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value with the specified TTL; 0 uses the provider default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetWithTags stores a value and links it to tags for group invalidation.
	SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// DeleteByTag removes all keys associated with the given tag.
	DeleteByTag(ctx context.Context, tag string) error

	// Clear removes all items from the cache.
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) bool

	// Close closes the provider and releases any resources.
	Close() error

	// Stats returns statistics about the cache provider.
	Stats(ctx context.Context) (*CacheStats, error)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Hits          int64          `json:"hits"`
	Misses        int64          `json:"misses"`
	Keys          int64          `json:"keys"`
	ProviderType  string         `json:"provider_type"`
	ProviderStats map[string]any `json:"provider_stats,omitempty"`
}

// Options contains configuration options for cache providers.
type Options struct {
	// DefaultTTL is used when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of items (in-memory provider only).
	MaxSize int

	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string
}

func defaultOptions() *Options {
	return &Options{
		DefaultTTL: 5 * time.Minute,
		MaxSize:    10000,
		KeyPrefix:  "dataprovider:",
	}
}
