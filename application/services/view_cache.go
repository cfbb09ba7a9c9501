package services

import (
	"context"
	"encoding/json"
	"time"

	"esn-backend/application/ports"
	"esn-backend/application/queries"
	"esn-backend/domain/core/valueobjects"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// generationTTL bounds how long an idle customer's generation is kept
const generationTTL = 24 * time.Hour

// ViewCacheKey returns the cache key of a customer's network view within a generation
func ViewCacheKey(customerID valueobjects.CustomerID, generation string) string {
	return "esn:view:" + customerID.String() + ":" + generation
}

// GenerationKey returns the cache key holding a customer's current view generation
func GenerationKey(customerID valueobjects.CustomerID) string {
	return "esn:view-gen:" + customerID.String()
}

// ViewCache stores rendered network views under a per-customer generation.
// Writers start a new generation after every successful save; readers take
// the generation before loading and store what they loaded under it. A view
// loaded before a save therefore lands under a generation nobody reads.
//
// A nil cache makes every method a no-op.
type ViewCache struct {
	cache  ports.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache creates a view cache over any ports.Cache
func NewViewCache(cache ports.Cache, ttl time.Duration, logger *zap.Logger) *ViewCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache{cache: cache, ttl: ttl, logger: logger}
}

// Generation returns the customer's current generation, starting one if
// none exists. An empty result means the view must not be cached.
func (c *ViewCache) Generation(ctx context.Context, customerID valueobjects.CustomerID) string {
	if c == nil || c.cache == nil {
		return ""
	}
	if raw, ok := c.cache.Get(ctx, GenerationKey(customerID)); ok && len(raw) > 0 {
		return string(raw)
	}
	return c.startGeneration(ctx, customerID)
}

// Get returns the view cached under generation, if any
func (c *ViewCache) Get(ctx context.Context, customerID valueobjects.CustomerID, generation string) (*queries.NetworkView, bool) {
	if c == nil || c.cache == nil || generation == "" {
		return nil, false
	}

	key := ViewCacheKey(customerID, generation)
	raw, ok := c.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var view queries.NetworkView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.Warn("Dropping undecodable cached view",
			zap.String("customerID", customerID.String()),
			zap.Error(err),
		)
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}
	return &view, true
}

// Current returns the view cached under the customer's current generation
func (c *ViewCache) Current(ctx context.Context, customerID valueobjects.CustomerID) (*queries.NetworkView, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}
	raw, ok := c.cache.Get(ctx, GenerationKey(customerID))
	if !ok {
		return nil, false
	}
	return c.Get(ctx, customerID, string(raw))
}

// Put stores a view under generation. Failures are logged only.
func (c *ViewCache) Put(ctx context.Context, customerID valueobjects.CustomerID, generation string, view *queries.NetworkView) {
	if c == nil || c.cache == nil || view == nil || generation == "" {
		return
	}

	raw, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn("Failed to encode view for cache", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, ViewCacheKey(customerID, generation), raw, c.ttl); err != nil {
		c.logger.Warn("Failed to cache view",
			zap.String("customerID", customerID.String()),
			zap.Error(err),
		)
	}
}

// Invalidate starts a new generation, orphaning every view cached so far
func (c *ViewCache) Invalidate(ctx context.Context, customerID valueobjects.CustomerID) {
	if c == nil || c.cache == nil {
		return
	}
	if c.startGeneration(ctx, customerID) != "" {
		return
	}

	// Without a new generation the next reader must at least start its own
	if err := c.cache.Delete(ctx, GenerationKey(customerID)); err != nil {
		c.logger.Error("Failed to invalidate cached view",
			zap.String("customerID", customerID.String()),
			zap.Error(err),
		)
	}
}

func (c *ViewCache) startGeneration(ctx context.Context, customerID valueobjects.CustomerID) string {
	generation := uuid.NewString()
	ttl := generationTTL
	if c.ttl*2 > ttl {
		ttl = c.ttl * 2
	}
	if err := c.cache.Set(ctx, GenerationKey(customerID), []byte(generation), ttl); err != nil {
		c.logger.Warn("Failed to start view generation",
			zap.String("customerID", customerID.String()),
			zap.Error(err),
		)
		return ""
	}
	return generation
}
