// --- File: internal/storage/cache/redisclient.go ---
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every key so several deployments can share one
	// database without seeing each other's registrations.
	Namespace string
}

// RedisClient stores JSON values in Redis and satisfies CacheClient.
type RedisClient struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisClient connects and pings within ctx, failing fast on a bad address.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", opts.Addr, err)
	}

	return &RedisClient{rdb: rdb, namespace: opts.Namespace}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string, dest any) error {
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to decode cached value for %q: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	return c.rdb.Set(ctx, c.key(key), bytes, ttl).Err()
}

func (c *RedisClient) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

func (c *RedisClient) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}
