package router

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores routing decisions keyed by "task_type:priority". The key
// deliberately excludes the task description: two requests of the same
// type and priority reuse one decision even when their descriptions
// differ, trading per-description precision for hit rate.
type Cache interface {
	Get(ctx context.Context, key string) (*RoutingResult, bool)
	Set(ctx context.Context, key string, result *RoutingResult)
	Clear(ctx context.Context)
	Len(ctx context.Context) int
	Keys(ctx context.Context) []string
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*RoutingResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*RoutingResult)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*RoutingResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, result *RoutingResult) {
	c.mu.Lock()
	c.entries[key] = result
	c.mu.Unlock()
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*RoutingResult)
	c.mu.Unlock()
}

func (c *MemoryCache) Len(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Keys(_ context.Context) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// DefaultCacheTTL bounds how long a shared routing decision stays valid.
const DefaultCacheTTL = 10 * time.Minute

// RedisCache shares routing decisions across router instances. Values
// are JSON-encoded RoutingResults under a common key prefix with a TTL.
// Redis errors degrade to cache misses.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

func NewRedisCache(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "runway:routing:"
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "routing_cache")),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*RoutingResult, bool) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var result RoutingResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, c.keyPrefix+key)
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, result *RoutingResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	keys, err := c.client.Keys(ctx, c.keyPrefix+"*").Result()
	if err != nil {
		c.logger.Warn("cache clear failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

func (c *RedisCache) Len(ctx context.Context) int {
	return len(c.Keys(ctx))
}

func (c *RedisCache) Keys(ctx context.Context) []string {
	keys, err := c.client.Keys(ctx, c.keyPrefix+"*").Result()
	if err != nil {
		c.logger.Warn("cache keys failed", zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(c.keyPrefix):])
	}
	return out
}
