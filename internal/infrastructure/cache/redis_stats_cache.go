package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appstats "github.com/agency/backoffice/internal/application/stats"
	"github.com/redis/go-redis/v9"
)

// RedisStatsCache implements the stats cache port on Redis with JSON
// values. Suitable for deployments with more than one instance, where the
// write-path invalidation has to reach every reader.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisStatsCache connects to Redis and verifies the connection
func NewRedisStatsCache(cfg RedisConfig) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStatsCacheWithClient(client, cfg.TTL), nil
}

// NewRedisStatsCacheWithClient wraps an existing client, useful for tests
// or when sharing a client across components
func NewRedisStatsCacheWithClient(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStatsCache{client: client, ttl: ttl}
}

// Get unmarshals the cached value into dest and reports whether the key
// was present
func (c *RedisStatsCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores the value under key with the configured TTL
func (c *RedisStatsCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes the given keys; missing keys are ignored
func (c *RedisStatsCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

var _ appstats.StatsCache = (*RedisStatsCache)(nil)
