package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the persistent TTL-eviction cache backend. Redis's native
// per-key expiry (SET key value EX ttl) is the idiomatic way to get a
// TTL-evicting key-value store without maintaining a separate expiry
// index ourselves.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing Redis client. ttl must be >= 0;
// ttl == 0 stores without expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached value for key. A connection or protocol error is
// surfaced to the caller, who degrades to a direct provider call — the
// cache is best-effort and never blocks a lookup.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Put stores value for key with the configured TTL (or no expiry if
// ttl == 0).
func (c *RedisCache) Put(ctx context.Context, key string, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}
