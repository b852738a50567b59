package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	Stats(ctx context.Context) map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

type MultiLevelConfig struct {
	// L1TTL caps how long a value stays in process memory.
	L1TTL          time.Duration
	L1MaxEntries   int
	CircuitBreaker *CircuitBreakerConfig
}

func DefaultMultiLevelConfig() *MultiLevelConfig {
	return &MultiLevelConfig{
		L1TTL:          time.Minute,
		L1MaxEntries:   1000,
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// MultiLevelCache reads through process memory first and Redis second. Redis
// is optional; when present every call to it goes through a circuit breaker
// and a Redis failure degrades to an L1-only cache instead of an error.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	l1TTL   time.Duration
	logger  *zap.Logger
}

func NewMultiLevelCache(redisCache *RedisCache, cfg *MultiLevelConfig, logger *zap.Logger) *MultiLevelCache {
	if cfg == nil {
		cfg = DefaultMultiLevelConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MultiLevelCache{
		l1:      NewMemoryCache(cfg.L1MaxEntries),
		l2:      redisCache,
		breaker: NewCircuitBreaker(cfg.CircuitBreaker),
		metrics: NewCacheMetrics(),
		l1TTL:   cfg.L1TTL,
		logger:  logger.With(zap.String("component", "cache")),
	}
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) Breaker() *CircuitBreaker {
	return c.breaker
}

func (c *MultiLevelCache) l1Expiry(ttl time.Duration) time.Duration {
	if c.l1TTL > 0 && (ttl <= 0 || ttl > c.l1TTL) {
		return c.l1TTL
	}
	return ttl
}

// l2Do runs fn against Redis through the breaker. Failures are counted and
// logged, then swallowed.
func (c *MultiLevelCache) l2Do(op, key string, fn func() error) {
	if c.l2 == nil {
		return
	}
	if err := c.breaker.Execute(fn); err != nil {
		c.metrics.RecordError()
		if !errors.Is(err, ErrCircuitBreakerOpen) {
			c.logger.Warn("redis operation failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
		}
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, c.l1Expiry(ttl)); err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordSet()

	c.l2Do("set", key, func() error {
		return c.l2.Set(ctx, key, value, ttl)
	})
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.l1.Get(ctx, key, dest)
	if err == nil {
		c.metrics.RecordHit()
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.metrics.RecordError()
		return err
	}

	if c.l2 != nil {
		found := false
		c.l2Do("get", key, func() error {
			getErr := c.l2.Get(ctx, key, dest)
			if errors.Is(getErr, ErrCacheMiss) {
				return nil
			}
			found = getErr == nil
			return getErr
		})
		if found {
			c.metrics.RecordHit()
			if err := c.l1.Set(ctx, key, dest, c.l1TTL); err != nil {
				c.logger.Debug("failed to backfill memory cache", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}

	c.metrics.RecordMiss()
	return ErrCacheMiss
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	c.metrics.RecordDelete()

	if len(keys) > 0 {
		c.l2Do("delete", keys[0], func() error {
			return c.l2.Delete(ctx, keys...)
		})
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.l1.DeletePattern(ctx, pattern); err != nil {
		return err
	}
	c.metrics.RecordDelete()

	c.l2Do("delete_pattern", pattern, func() error {
		return c.l2.DeletePattern(ctx, pattern)
	})
	return nil
}

func (c *MultiLevelCache) Stats(ctx context.Context) map[string]interface{} {
	snapshot := c.metrics.GetStats()
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(ctx),
		"metrics":  snapshot,
		"hit_rate": c.metrics.HitRate(),
		"breaker":  c.breaker.GetStats(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats(ctx)
	}
	return stats
}

// Health reports Redis reachability. An L1-only cache is always healthy.
func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if c.breaker.GetState() == CircuitBreakerOpen {
		return ErrCacheDown
	}
	return c.l2.Health(ctx)
}

func (c *MultiLevelCache) Close() error {
	_ = c.l1.Close()

	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
