package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizationCacheRoundTrip(t *testing.T) {
	cache := NewCategorizationCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "entity-1", "result", 60))

	value, hit := cache.Get(ctx, "entity-1")
	require.True(t, hit)
	assert.Equal(t, "result", value)

	_, hit = cache.Get(ctx, "entity-2")
	assert.False(t, hit)
}

func TestCategorizationCacheNonPositiveTTL(t *testing.T) {
	cache := NewCategorizationCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	// ttl <= 0 must not cache forever
	require.NoError(t, cache.Set(ctx, "entity-1", "result", 0))
	_, hit := cache.Get(ctx, "entity-1")
	assert.False(t, hit)
}

func TestCategorizationCacheDeleteAndClear(t *testing.T) {
	cache := NewCategorizationCache(time.Minute)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "entity-1", "a", 60))
	require.NoError(t, cache.Set(ctx, "entity-2", "b", 60))

	require.NoError(t, cache.Delete(ctx, "entity-1"))
	_, hit := cache.Get(ctx, "entity-1")
	assert.False(t, hit)

	require.NoError(t, cache.Clear(ctx))
	_, hit = cache.Get(ctx, "entity-2")
	assert.False(t, hit)
}
