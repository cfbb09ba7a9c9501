package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"esn-backend/application/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ports.Locker with SET NX PX
type RedisLocker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a locker whose keys are namespaced by prefix
func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Acquire retries with backoff until the key is set or wait elapses
func (l *RedisLocker) Acquire(ctx context.Context, resource string, ttl, wait time.Duration) (ports.Lock, error) {
	key := l.prefix + resource
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	retryInterval := 25 * time.Millisecond

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			l.logger.Debug("Lock acquired", zap.String("resource", resource), zap.Duration("ttl", ttl))
			return &redisLock{locker: l, key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ports.ErrLockNotAcquired, resource)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < 250*time.Millisecond {
				retryInterval *= 2
			}
		}
	}
}

type redisLock struct {
	locker *RedisLocker
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.locker.client, []string{l.key}, l.token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		l.locker.logger.Warn("Lock expired before release", zap.String("key", l.key))
	}
	return nil
}
