package cache

import (
	"fmt"

	appstats "github.com/agency/backoffice/internal/application/stats"
	"github.com/agency/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StatsCacheFactory creates the stats cache backend selected by
// configuration
type StatsCacheFactory struct {
	cacheConfig         config.CacheConfig
	redisConfig         config.RedisConfig
	logger              *zap.Logger
	allowMemoryFallback bool
}

// StatsCacheFactoryOption is a functional option for configuring the factory
type StatsCacheFactoryOption func(*StatsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithMemoryFallback(allow bool) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.allowMemoryFallback = allow
	}
}

// NewStatsCacheFactory creates a new factory
func NewStatsCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...StatsCacheFactoryOption) *StatsCacheFactory {
	f := &StatsCacheFactory{
		cacheConfig:         cacheCfg,
		redisConfig:         redisCfg,
		logger:              zap.NewNop(),
		allowMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create builds the configured stats cache. Backend "none" yields a nil
// cache, which the services treat as recompute-every-call. A Redis
// backend that cannot be reached falls back to the in-memory cache when
// fallback is allowed: stale reads on one instance beat failing the
// whole dashboard.
func (f *StatsCacheFactory) Create() (appstats.StatsCache, error) {
	switch f.cacheConfig.Backend {
	case "none":
		f.logger.Info("stats cache disabled")
		return nil, nil
	case "memory":
		f.logger.Info("using in-memory stats cache",
			zap.Duration("ttl", f.cacheConfig.TTL))
		return NewMemoryStatsCache(f.cacheConfig.TTL), nil
	case "redis":
		c, err := NewRedisStatsCache(RedisConfig{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
			TTL:      f.cacheConfig.TTL,
		})
		if err == nil {
			f.logger.Info("using Redis stats cache",
				zap.String("addr", f.redisConfig.Addr()),
				zap.Duration("ttl", f.cacheConfig.TTL))
			return c, nil
		}
		if !f.allowMemoryFallback {
			return nil, fmt.Errorf("redis stats cache required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stats cache. "+
			"Cache invalidation will not propagate across instances.",
			zap.Error(err),
		)
		return NewMemoryStatsCache(f.cacheConfig.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.cacheConfig.Backend)
	}
}
