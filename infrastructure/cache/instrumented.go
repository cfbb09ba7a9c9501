package cache

import (
	"context"
	"time"

	"esn-backend/application/ports"
	"esn-backend/pkg/observability"
)

// InstrumentedCache counts hits and misses of the wrapped cache
type InstrumentedCache struct {
	next    ports.Cache
	metrics *observability.Collector
}

// NewInstrumentedCache wraps next
func NewInstrumentedCache(next ports.Cache, metrics *observability.Collector) *InstrumentedCache {
	return &InstrumentedCache{next: next, metrics: metrics}
}

// Get implements ports.Cache
func (c *InstrumentedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := c.next.Get(ctx, key)
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(ok)
	}
	return value, ok
}

// Set implements ports.Cache
func (c *InstrumentedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}

// Delete implements ports.Cache
func (c *InstrumentedCache) Delete(ctx context.Context, key string) error {
	return c.next.Delete(ctx, key)
}
