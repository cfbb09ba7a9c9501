package cache

import (
	"context"
	"testing"
	"time"

	"esn-backend/pkg/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(10 * time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Millisecond))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	// Close is idempotent
	assert.NoError(t, c.Close())
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	c := NewRedisCache(client, "test:", zap.NewNop())

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("value"), time.Minute))
	assert.True(t, mr.Exists("test:k"))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "value", string(got))

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "gone", []byte("x"), time.Minute))
	require.NoError(t, c.Delete(ctx, "gone"))
	assert.False(t, mr.Exists("test:gone"))

	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCache_ServerDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	c := NewRedisCache(client, "test:", zap.NewNop())
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	mr.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

func TestInstrumentedCache_CountsLookups(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemoryCache(time.Minute)
	defer backing.Close()
	metrics := observability.NewCollector("test")
	c := NewInstrumentedCache(backing, metrics)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "other")
	require.NoError(t, c.Delete(ctx, "k"))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMisses))
}
