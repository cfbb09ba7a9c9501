package common

import (
	"context"
	"time"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyCustomerID  ContextKey = "customer_id"
	ContextKeyShop        ContextKey = "shop"
	ContextKeyAccessToken ContextKey = "access_token"
	ContextKeyRequestID   ContextKey = "request_id"
	ContextKeyStartTime   ContextKey = "start_time"
)

// WithCustomerID adds the authenticated customer GID to context
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, ContextKeyCustomerID, customerID)
}

// GetCustomerID extracts the customer GID from context
func GetCustomerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyCustomerID).(string)
	return id, ok && id != ""
}

// WithShop adds the shop domain to context
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, ContextKeyShop, shop)
}

// GetShop extracts the shop domain from context
func GetShop(ctx context.Context) (string, bool) {
	shop, ok := ctx.Value(ContextKeyShop).(string)
	return shop, ok && shop != ""
}

// WithAccessToken adds the caller's raw bearer token to context. Stores
// acting on behalf of the customer forward it upstream.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyAccessToken, token)
}

// GetAccessToken extracts the caller's raw bearer token from context
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ContextKeyAccessToken).(string)
	return token, ok && token != ""
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithStartTime adds start time to context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyStartTime, startTime)
}

// GetElapsedTime calculates elapsed time from start time in context
func GetElapsedTime(ctx context.Context) time.Duration {
	if startTime, ok := ctx.Value(ContextKeyStartTime).(time.Time); ok {
		return time.Since(startTime)
	}
	return 0
}
