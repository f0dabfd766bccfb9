// Package cache provides best-effort caches for composed read models.
//
// Cache failures never reach the caller: a failed read is a miss and a
// failed write or delete is logged and dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Cache stores values of type T by key.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (*T, bool)
	Set(ctx context.Context, key string, value *T)
	Invalidate(ctx context.Context, key string)
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisClient creates a Redis client for the given options.
func NewRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// Redis is a JSON cache stored in Redis under a key prefix.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed cache. Keys are stored as prefix+key.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *Redis[T] {
	return &Redis[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Str("prefix", prefix).Logger(),
	}
}

// Get returns the cached value, or false on a miss or any error.
func (c *Redis[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cache entry")
		c.Invalidate(ctx, key)
		return nil, false
	}
	return &value, true
}

// Set stores value with the configured TTL.
func (c *Redis[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// Invalidate removes the cached value.
func (c *Redis[T]) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed")
	}
}

// Nop is a cache that stores nothing.
type Nop[T any] struct{}

// NewNop creates a cache that always misses.
func NewNop[T any]() Nop[T] {
	return Nop[T]{}
}

func (Nop[T]) Get(context.Context, string) (*T, bool) { return nil, false }

func (Nop[T]) Set(context.Context, string, *T) {}

func (Nop[T]) Invalidate(context.Context, string) {}
