// Package devcache provides an optional Redis lookaside cache for
// api_key to device id resolution. Every failure degrades to a cache
// miss so the caller falls through to the database.
package devcache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "device_key:"

// Cache caches device ids keyed by API key with a TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis at the given URL and verifies connectivity.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// GetDeviceID returns the cached device id for an API key, if any.
func (c *Cache) GetDeviceID(ctx context.Context, apiKey string) (string, bool) {
	id, err := c.rdb.Get(ctx, keyPrefix+apiKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("device cache get failed", "error", err)
		return "", false
	}
	return id, true
}

// SetDeviceID records a resolved API key for the configured TTL.
func (c *Cache) SetDeviceID(ctx context.Context, apiKey, deviceID string) {
	if err := c.rdb.Set(ctx, keyPrefix+apiKey, deviceID, c.ttl).Err(); err != nil {
		slog.Warn("device cache set failed", "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
