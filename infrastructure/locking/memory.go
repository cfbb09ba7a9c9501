package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"esn-backend/application/ports"

	"github.com/google/uuid"
)

// pollInterval is how often a waiting Acquire retries
const pollInterval = 10 * time.Millisecond

// MemoryLocker is a process-local ports.Locker
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]heldLock
	clock func() time.Time
}

type heldLock struct {
	token     string
	expiresAt time.Time
}

// NewMemoryLocker creates a locker for a single process
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]heldLock),
		clock: time.Now,
	}
}

// Acquire polls until the resource is free, expired or wait elapses
func (m *MemoryLocker) Acquire(ctx context.Context, resource string, ttl, wait time.Duration) (ports.Lock, error) {
	deadline := m.clock().Add(wait)

	for {
		if token, ok := m.tryAcquire(resource, ttl); ok {
			return &memoryLock{locker: m, resource: resource, token: token}, nil
		}
		if !m.clock().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ports.ErrLockNotAcquired, resource)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *MemoryLocker) tryAcquire(resource string, ttl time.Duration) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if current, ok := m.held[resource]; ok && now.Before(current.expiresAt) {
		return "", false
	}

	token := uuid.NewString()
	m.held[resource] = heldLock{token: token, expiresAt: now.Add(ttl)}
	return token, true
}

func (m *MemoryLocker) release(resource, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.held[resource]; ok && current.token == token {
		delete(m.held, resource)
	}
}

type memoryLock struct {
	locker   *MemoryLocker
	resource string
	token    string
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.locker.release(l.resource, l.token)
	return nil
}
