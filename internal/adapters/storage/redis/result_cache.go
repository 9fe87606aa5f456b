// Package redis provides a Redis-backed transform result cache, shared by
// every replica pointed at the same Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PabloGalante/tonal/internal/domain"
)

const defaultKeyPrefix = "tonal:cache:"

// Config contains configuration options for the Redis result cache.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is the prefix for all Redis keys.
	// Default: "tonal:cache:"
	KeyPrefix string
}

type ResultCache struct {
	client    *redis.Client
	keyPrefix string
}

func New(config Config) (*ResultCache, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	return &ResultCache{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Dial connects to addr and verifies the connection with a PING.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cl, nil
}

func (c *ResultCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key. A non-positive ttl keeps the key until evicted.
func (c *ResultCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

var _ domain.ResultCache = (*ResultCache)(nil)
