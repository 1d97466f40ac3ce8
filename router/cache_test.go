package router

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleResult() *RoutingResult {
	return &RoutingResult{
		AgentID:    "designer-1",
		AgentName:  "Design Agent",
		TaskType:   TaskContentGeneration,
		Confidence: 0.95,
		Method:     MethodExact,
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok := cache.Get(ctx, "content_generation:50")
	assert.False(t, ok)

	cache.Set(ctx, "content_generation:50", sampleResult())

	got, ok := cache.Get(ctx, "content_generation:50")
	require.True(t, ok)
	assert.Equal(t, "designer-1", got.AgentID)
	assert.Equal(t, 1, cache.Len(ctx))
	assert.Equal(t, []string{"content_generation:50"}, cache.Keys(ctx))

	cache.Clear(ctx)
	assert.Zero(t, cache.Len(ctx))
}

func setupRedisCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisCache(client, "test:routing:", ttl, zap.NewNop())
}

func TestRedisCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	_, cache := setupRedisCache(t, time.Minute)

	cache.Set(ctx, "content_generation:50", sampleResult())

	got, ok := cache.Get(ctx, "content_generation:50")
	require.True(t, ok)
	assert.Equal(t, "designer-1", got.AgentID)
	assert.Equal(t, MethodExact, got.Method)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)

	assert.Equal(t, 1, cache.Len(ctx))
	assert.Equal(t, []string{"content_generation:50"}, cache.Keys(ctx))
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupRedisCache(t, time.Minute)

	cache.Set(ctx, "general:50", sampleResult())
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "general:50")
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryDropped(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("test:routing:general:50", "{not json"))

	_, ok := cache.Get(ctx, "general:50")
	assert.False(t, ok)
	assert.False(t, mr.Exists("test:routing:general:50"), "corrupt entry deleted")
}

func TestRedisCache_Clear(t *testing.T) {
	ctx := context.Background()
	_, cache := setupRedisCache(t, time.Minute)

	cache.Set(ctx, "a:1", sampleResult())
	cache.Set(ctx, "b:2", sampleResult())
	require.Equal(t, 2, cache.Len(ctx))

	cache.Clear(ctx)
	assert.Zero(t, cache.Len(ctx))
}

func TestRedisCache_MissOnClosedServer(t *testing.T) {
	ctx := context.Background()
	mr, cache := setupRedisCache(t, time.Minute)

	mr.Close()

	_, ok := cache.Get(ctx, "general:50")
	assert.False(t, ok, "redis errors degrade to misses")
}
