package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitechdev/DataProvider/pkg/metrics"
)

// Cache wraps a Provider with JSON serialization and hit/miss metrics.
type Cache struct {
	provider Provider
	name     string
}

// NewCache creates a new cache manager with the specified provider.
func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider, name: providerName(provider)}
}

func providerName(p Provider) string {
	switch p.(type) {
	case *MemoryProvider:
		return "memory"
	case *RedisProvider:
		return "redis"
	case *MemcacheProvider:
		return "memcache"
	default:
		return fmt.Sprintf("%T", p)
	}
}

// Provider returns the wrapped provider
func (c *Cache) Provider() Provider {
	return c.provider
}

// Get retrieves and deserializes a value; a miss returns ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.provider.Get(ctx, key)
	if !ok {
		metrics.GetProvider().RecordCacheMiss(c.name)
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	metrics.GetProvider().RecordCacheHit(c.name)

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	return nil
}

// Set serializes and stores a value in the cache with the specified TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.SetWithTags(ctx, key, value, ttl, nil)
}

// SetWithTags serializes value and links it to tags.
func (c *Cache) SetWithTags(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	if len(tags) == 0 {
		return c.provider.Set(ctx, key, data, ttl)
	}
	return c.provider.SetWithTags(ctx, key, data, ttl, tags)
}

// Delete removes a key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.provider.Delete(ctx, key)
}

// DeleteByTag removes every key linked to tag.
func (c *Cache) DeleteByTag(ctx context.Context, tag string) error {
	return c.provider.DeleteByTag(ctx, tag)
}

// Clear removes all items from the cache.
func (c *Cache) Clear(ctx context.Context) error {
	return c.provider.Clear(ctx)
}

// Exists checks if a key exists in the cache.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	return c.provider.Exists(ctx, key)
}

// Stats returns statistics about the cache and publishes the key count.
func (c *Cache) Stats(ctx context.Context) (*CacheStats, error) {
	stats, err := c.provider.Stats(ctx)
	if err == nil {
		metrics.GetProvider().UpdateCacheSize(c.name, stats.Keys)
	}
	return stats, err
}

// Close closes the cache and releases any resources.
func (c *Cache) Close() error {
	return c.provider.Close()
}
