package locking

import (
	"context"
	"testing"
	"time"

	"esn-backend/application/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryLocker()

	lock, err := locker.Acquire(ctx, "r", time.Minute, 0)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "r", time.Minute, 30*time.Millisecond)
	assert.ErrorIs(t, err, ports.ErrLockNotAcquired)

	other, err := locker.Acquire(ctx, "other", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	again, err := locker.Acquire(ctx, "r", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMemoryLocker_ExpiredLockIsTakenOver(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker := NewMemoryLocker()
	locker.clock = func() time.Time { return now }

	stale, err := locker.Acquire(ctx, "r", time.Second, 0)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := locker.Acquire(ctx, "r", time.Second, 0)
	require.NoError(t, err)

	// The stale holder must not release the new holder's lock
	require.NoError(t, stale.Release(ctx))
	_, err = locker.Acquire(ctx, "r", time.Second, 0)
	assert.ErrorIs(t, err, ports.ErrLockNotAcquired)

	require.NoError(t, fresh.Release(ctx))
}

func TestMemoryLocker_WaitsForRelease(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryLocker()
	lock, err := locker.Acquire(ctx, "r", time.Minute, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = lock.Release(ctx)
	}()

	second, err := locker.Acquire(ctx, "r", time.Minute, time.Second)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	locker := NewMemoryLocker()
	_, err := locker.Acquire(context.Background(), "r", time.Minute, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "r", time.Minute, time.Minute)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewRedisLocker(client, "lock:", zap.NewNop())

	lock, err := locker.Acquire(ctx, "r", time.Minute, 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:r"))
	assert.Equal(t, time.Minute, mr.TTL("lock:r"))

	_, err = locker.Acquire(ctx, "r", time.Minute, 60*time.Millisecond)
	assert.ErrorIs(t, err, ports.ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("lock:r"))
}

func TestRedisLocker_ReleaseAfterTakeover(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewRedisLocker(client, "lock:", zap.NewNop())

	stale, err := locker.Acquire(ctx, "r", time.Second, 0)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	fresh, err := locker.Acquire(ctx, "r", time.Minute, 0)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("lock:r"), "stale release must keep the new holder's key")

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists("lock:r"))
}

func TestRedisLocker_ServerError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	locker := NewRedisLocker(client, "lock:", zap.NewNop())
	mr.Close()

	_, err := locker.Acquire(context.Background(), "r", time.Second, 0)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrLockNotAcquired)
}
