package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bitechdev/DataProvider/pkg/config"
)

// RedisProvider is a Redis implementation of the Provider interface. Tags are
// kept as sets under <prefix>tag:<name>, and each key remembers its own tags
// under <prefix>tags:<key>.
type RedisProvider struct {
	client  redis.UniversalClient
	options *Options
}

// NewRedisProvider connects to Redis and verifies the connection with PING.
func NewRedisProvider(cfg config.RedisConfig, opts *Options) (*RedisProvider, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisProviderWithClient(client, opts), nil
}

// NewRedisProviderWithClient wraps an existing client
func NewRedisProviderWithClient(client redis.UniversalClient, opts *Options) *RedisProvider {
	if opts == nil {
		opts = defaultOptions()
	}
	return &RedisProvider{client: client, options: opts}
}

func (r *RedisProvider) key(k string) string {
	return r.options.KeyPrefix + k
}

func (r *RedisProvider) tagKey(tag string) string {
	return r.options.KeyPrefix + "tag:" + tag
}

func (r *RedisProvider) tagsOf(k string) string {
	return r.options.KeyPrefix + "tags:" + k
}

// Get retrieves a value from the cache by key.
func (r *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value in the cache with the specified TTL.
func (r *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.options.DefaultTTL
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

// SetWithTags stores a value and links it to tags in one pipeline.
func (r *RedisProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if ttl == 0 {
		ttl = r.options.DefaultTTL
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(key), value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, r.tagKey(tag), key)
		// tag sets outlive their members so DeleteByTag still finds them
		if ttl > 0 {
			pipe.Expire(ctx, r.tagKey(tag), ttl+time.Hour)
		}
	}
	if len(tags) > 0 {
		members := make([]interface{}, len(tags))
		for i, t := range tags {
			members[i] = t
		}
		pipe.SAdd(ctx, r.tagsOf(key), members...)
		if ttl > 0 {
			pipe.Expire(ctx, r.tagsOf(key), ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a key and its tag links.
func (r *RedisProvider) Delete(ctx context.Context, key string) error {
	tags, err := r.client.SMembers(ctx, r.tagsOf(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, tag := range tags {
		pipe.SRem(ctx, r.tagKey(tag), key)
	}
	pipe.Del(ctx, r.tagsOf(key), r.key(key))
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteByTag removes all keys associated with the given tag.
func (r *RedisProvider) DeleteByTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, r.tagKey(tag)).Result()
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.key(k), r.tagsOf(k))
	}
	pipe.Del(ctx, r.tagKey(tag))
	_, err = pipe.Exec(ctx)
	return err
}

// Clear removes every key under the configured prefix.
func (r *RedisProvider) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.options.KeyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (r *RedisProvider) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return err == nil && n > 0
}

// Close closes the provider and releases any resources.
func (r *RedisProvider) Close() error {
	return r.client.Close()
}

// Stats returns the key count of the selected database.
func (r *RedisProvider) Stats(ctx context.Context) (*CacheStats, error) {
	dbSize, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB size: %w", err)
	}
	return &CacheStats{
		Keys:         dbSize,
		ProviderType: "redis",
		ProviderStats: map[string]any{
			"prefix": r.options.KeyPrefix,
		},
	}, nil
}
