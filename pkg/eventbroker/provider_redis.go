package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamClient is the part of the Redis client used for publishing
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisPublisherConfig configures the Redis streams publisher
type RedisPublisherConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	StreamName string
	MaxLen     int64
}

// RedisPublisher appends events to a Redis stream with XADD
type RedisPublisher struct {
	client     streamClient
	streamName string
	maxLen     int64
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(cfg RedisPublisherConfig) (*RedisPublisher, error) {
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
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisPublisher(client, cfg.StreamName, cfg.MaxLen), nil
}

func newRedisPublisher(client streamClient, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = "dataprovider:events"
	}
	if maxLen == 0 {
		maxLen = 10000
	}
	return &RedisPublisher{client: client, streamName: stream, maxLen: maxLen}
}

// Publish adds the event to the stream, trimming it approximately to MaxLen
func (rp *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: rp.streamName,
		MaxLen: rp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":     data,
			"id":        event.ID,
			"type":      event.Type,
			"source":    event.Source,
			"operation": event.Operation,
		},
	}
	if _, err := rp.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add event to stream: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}
