package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/bitechdev/DataProvider/pkg/config"
)

// MemcacheProvider is a Memcache implementation of the Provider interface.
// Memcache cannot enumerate keys, so tags are version counters: every value
// records the versions of its tags when stored, and DeleteByTag bumps the
// counter, turning every older value into a miss.
type MemcacheProvider struct {
	client  *memcache.Client
	options *Options
}

// memcacheEnvelope is the stored form of every value
type memcacheEnvelope struct {
	Value []byte            `json:"v"`
	Tags  map[string]uint64 `json:"t,omitempty"`
}

// NewMemcacheProvider creates a new Memcache cache provider.
func NewMemcacheProvider(cfg config.MemcacheConfig, opts *Options) (*MemcacheProvider, error) {
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{"localhost:11211"}
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	if opts == nil {
		opts = defaultOptions()
	}

	client := memcache.New(cfg.Servers...)
	client.MaxIdleConns = cfg.MaxIdleConns
	client.Timeout = cfg.Timeout

	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to Memcache: %w", err)
	}

	return &MemcacheProvider{client: client, options: opts}, nil
}

func (m *MemcacheProvider) key(k string) string {
	return m.options.KeyPrefix + k
}

func (m *MemcacheProvider) tagKey(tag string) string {
	return m.options.KeyPrefix + "tag:" + tag
}

func (m *MemcacheProvider) tagVersions(tags []string) (map[string]uint64, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = m.tagKey(t)
	}
	items, err := m.client.GetMulti(keys)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]uint64, len(tags))
	for _, t := range tags {
		item, ok := items[m.tagKey(t)]
		if !ok {
			// Add fails harmlessly when another writer created it first
			if err := m.client.Add(&memcache.Item{Key: m.tagKey(t), Value: []byte("0")}); err != nil && !errors.Is(err, memcache.ErrNotStored) {
				return nil, err
			}
			versions[t] = 0
			continue
		}
		v, err := strconv.ParseUint(string(item.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt tag version for %q: %w", t, err)
		}
		versions[t] = v
	}
	return versions, nil
}

// Get retrieves a value; it is a miss when any of its tags moved on.
func (m *MemcacheProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	item, err := m.client.Get(m.key(key))
	if err != nil {
		return nil, false
	}
	var env memcacheEnvelope
	if err := json.Unmarshal(item.Value, &env); err != nil {
		return nil, false
	}
	if len(env.Tags) > 0 {
		tags := make([]string, 0, len(env.Tags))
		for t := range env.Tags {
			tags = append(tags, t)
		}
		current, err := m.tagVersions(tags)
		if err != nil {
			return nil, false
		}
		for t, v := range env.Tags {
			if current[t] != v {
				return nil, false
			}
		}
	}
	return env.Value, true
}

// Set stores a value in the cache with the specified TTL.
func (m *MemcacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.SetWithTags(ctx, key, value, ttl, nil)
}

// SetWithTags stores a value stamped with the current tag versions.
func (m *MemcacheProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}
	versions, err := m.tagVersions(tags)
	if err != nil {
		return err
	}
	data, err := json.Marshal(memcacheEnvelope{Value: value, Tags: versions})
	if err != nil {
		return err
	}
	return m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      data,
		Expiration: int32(ttl.Seconds()),
	})
}

// Delete removes a key from the cache.
func (m *MemcacheProvider) Delete(ctx context.Context, key string) error {
	err := m.client.Delete(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// DeleteByTag bumps the tag version.
func (m *MemcacheProvider) DeleteByTag(ctx context.Context, tag string) error {
	_, err := m.client.Increment(m.tagKey(tag), 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		// no value was ever stored under this tag
		return nil
	}
	return err
}

// Clear removes all items from the cache.
func (m *MemcacheProvider) Clear(ctx context.Context) error {
	return m.client.FlushAll()
}

// Exists checks if a key exists in the cache.
func (m *MemcacheProvider) Exists(ctx context.Context, key string) bool {
	_, ok := m.Get(ctx, key)
	return ok
}

// Close closes idle connections.
func (m *MemcacheProvider) Close() error {
	return m.client.Close()
}

// Stats returns limited statistics; memcache keeps no per-client counters.
func (m *MemcacheProvider) Stats(ctx context.Context) (*CacheStats, error) {
	return &CacheStats{
		ProviderType: "memcache",
		ProviderStats: map[string]any{
			"prefix": m.options.KeyPrefix,
		},
	}, nil
}
