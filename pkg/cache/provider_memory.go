package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryItem struct {
	value      []byte
	expiration time.Time
	lastAccess time.Time
	tags       []string
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expiration.IsZero() && now.After(m.expiration)
}

// MemoryProvider is an in-memory implementation of the Provider interface
// with LRU eviction once MaxSize is reached.
type MemoryProvider struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	tags    map[string]map[string]struct{} // tag -> keys
	options *Options
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemoryProvider creates a new in-memory cache provider.
func NewMemoryProvider(opts *Options) *MemoryProvider {
	if opts == nil {
		opts = defaultOptions()
	}
	return &MemoryProvider{
		items:   make(map[string]*memoryItem),
		tags:    make(map[string]map[string]struct{}),
		options: opts,
	}
}

// Get retrieves a value and refreshes its LRU position.
func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	item, ok := m.items[key]
	if !ok || item.expired(now) {
		if ok {
			m.removeLocked(key)
		}
		m.misses.Add(1)
		return nil, false
	}
	item.lastAccess = now
	m.hits.Add(1)
	return item.value, true
}

// Set stores a value in the cache with the specified TTL.
func (m *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.SetWithTags(ctx, key, value, ttl, nil)
}

// SetWithTags stores a value and replaces any previous tag links of key.
func (m *MemoryProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}
	now := time.Now()
	item := &memoryItem{value: value, lastAccess: now, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		item.expiration = now.Add(ttl)
	}

	if _, exists := m.items[key]; exists {
		m.removeLocked(key)
	} else if m.options.MaxSize > 0 && len(m.items) >= m.options.MaxSize {
		m.evictLocked(now)
	}

	m.items[key] = item
	for _, tag := range item.tags {
		if m.tags[tag] == nil {
			m.tags[tag] = make(map[string]struct{})
		}
		m.tags[tag][key] = struct{}{}
	}
	return nil
}

// Delete removes a key from the cache.
func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// DeleteByTag removes every key linked to tag.
func (m *MemoryProvider) DeleteByTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		m.removeLocked(key)
	}
	delete(m.tags, tag)
	return nil
}

// Clear removes all items and resets the counters.
func (m *MemoryProvider) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*memoryItem)
	m.tags = make(map[string]map[string]struct{})
	m.hits.Store(0)
	m.misses.Store(0)
	return nil
}

// Exists checks if a live key exists without touching the counters.
func (m *MemoryProvider) Exists(ctx context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	return ok && !item.expired(time.Now())
}

// Close drops every item.
func (m *MemoryProvider) Close() error {
	return m.Clear(context.Background())
}

// Stats returns statistics about the cache provider.
func (m *MemoryProvider) Stats(ctx context.Context) (*CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var live int64
	for _, item := range m.items {
		if !item.expired(now) {
			live++
		}
	}
	return &CacheStats{
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Keys:         live,
		ProviderType: "memory",
		ProviderStats: map[string]any{
			"capacity": m.options.MaxSize,
			"tags":     len(m.tags),
		},
	}, nil
}

// CleanExpired removes all expired items and returns how many were dropped.
func (m *MemoryProvider) CleanExpired(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for key, item := range m.items {
		if item.expired(now) {
			m.removeLocked(key)
			count++
		}
	}
	return count
}

// removeLocked deletes key and its tag links. m.mu must be held.
func (m *MemoryProvider) removeLocked(key string) {
	item, ok := m.items[key]
	if !ok {
		return
	}
	for _, tag := range item.tags {
		if keys, ok := m.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tags, tag)
			}
		}
	}
	delete(m.items, key)
}

// evictLocked drops one expired item, or the least recently used one.
func (m *MemoryProvider) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, item := range m.items {
		if item.expired(now) {
			m.removeLocked(key)
			return
		}
		if oldestKey == "" || item.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = item.lastAccess
		}
	}
	if oldestKey != "" {
		m.removeLocked(oldestKey)
	}
}
