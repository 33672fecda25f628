package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"promoter-dashboard/internal/util"

	"github.com/go-redis/redis/v8"
)

// Client caches computed rollups in Redis so poll-based dashboards do not
// recompute on every request. A disabled client is safe to call everywhere
// and behaves as a permanent cache miss.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis cache client.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Disabled returns a client that never caches.
func Disabled() *Client {
	return &Client{}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetJSON loads a cached value into out. The bool reports a cache hit.
func (c *Client) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		util.MetricsCacheMissesTotal.Inc()
		return false, nil
	}
	if err != nil {
		util.MetricsCacheMissesTotal.Inc()
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		util.MetricsCacheMissesTotal.Inc()
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}

	util.MetricsCacheHitsTotal.Inc()
	return true, nil
}

// SetJSON caches a value under key with the configured TTL.
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}) error {
	if c == nil || c.rdb == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for cache: %w", err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops cached values.
func (c *Client) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
