package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitechdev/DataProvider/pkg/query"
)

// totalKey is hashed to build the cache key of a COUNT query
type totalKey struct {
	Table      string            `json:"table"`
	SQL        string            `json:"sql"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// CachedTotal represents a cached total count
type CachedTotal struct {
	Total int64 `json:"total"`
}

// TotalKey returns the cache key for the row count of countSQL bound to params.
func TotalKey(table, countSQL string, params []query.Parameter) string {
	k := totalKey{Table: table, SQL: countSQL}
	if len(params) > 0 {
		k.Parameters = make(map[string]string, len(params))
		for _, p := range params {
			k.Parameters[p.Name] = p.Value.Kind().String() + ":" + p.Value.String()
		}
	}
	data, err := json.Marshal(k)
	if err != nil {
		data = []byte(fmt.Sprintf("%s|%s|%v", table, countSQL, params))
	}
	sum := sha256.Sum256(data)
	return "query_total:" + hex.EncodeToString(sum[:])
}

// TableTag is the invalidation tag shared by every cached total of table
func TableTag(table string) string {
	return "table:" + table
}

// Totals caches COUNT results per table, invalidated on writes.
type Totals struct {
	cache *Cache
	ttl   time.Duration
}

// NewTotals wraps provider; a nil provider yields nil.
func NewTotals(provider Provider, ttl time.Duration) *Totals {
	if provider == nil {
		return nil
	}
	return &Totals{cache: NewCache(provider), ttl: TTLOrDefault(ttl)}
}

// Get returns a cached total. Any provider error is reported as a miss.
func (t *Totals) Get(ctx context.Context, key string) (int64, bool) {
	if t == nil {
		return 0, false
	}
	var cached CachedTotal
	if err := t.cache.Get(ctx, key, &cached); err != nil {
		return 0, false
	}
	return cached.Total, true
}

// Set stores total under key, tagged with the table.
func (t *Totals) Set(ctx context.Context, table, key string, total int64) error {
	if t == nil {
		return nil
	}
	return t.cache.SetWithTags(ctx, key, CachedTotal{Total: total}, t.ttl, []string{TableTag(table)})
}

// Invalidate drops every cached total of table.
func (t *Totals) Invalidate(ctx context.Context, table string) error {
	if t == nil {
		return nil
	}
	err := t.cache.DeleteByTag(ctx, TableTag(table))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("invalidate totals of %s: %w", table, err)
	}
	return nil
}
