package ports

import (
	"context"
	"errors"
	"time"

	"esn-backend/domain/core/aggregates"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
	pkgerrors "esn-backend/pkg/errors"
)

// ErrVersionConflict is the cause of every stale-write error returned by a NetworkStore
var ErrVersionConflict = errors.New("stored document changed since it was read")

// NewVersionConflictError creates a conflict error wrapping ErrVersionConflict
func NewVersionConflictError(customerID valueobjects.CustomerID) *pkgerrors.AppError {
	return pkgerrors.NewConflictError("connection list was modified concurrently").
		WithCode("STALE_DOCUMENT").
		WithDetails(map[string]interface{}{"customerId": customerID.String()}).
		WithCause(ErrVersionConflict)
}

// IsVersionConflict reports whether err is a stale-write rejection
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// Document is the raw blob a store holds for one customer
type Document struct {
	CustomerID valueobjects.CustomerID
	Value      []byte
	Version    string
	Exists     bool
}

// NetworkStore defines the interface for the remote document holding a network.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type NetworkStore interface {
	// Load reads the document. A missing document is not an error:
	// it returns a Document with Exists=false.
	Load(ctx context.Context, customerID valueobjects.CustomerID) (*Document, error)

	// Save replaces the document when its current version equals expectedVersion.
	// An empty expectedVersion means the document must not exist yet.
	// Returns the new version token.
	Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error)
}

// SnapshotCodec converts between stored bytes and the aggregate
type SnapshotCodec interface {
	// Encode serializes the network at the current schema version
	Encode(network *aggregates.Network) ([]byte, error)

	// Decode parses and upgrades a stored value
	Decode(customerID valueobjects.CustomerID, value []byte, version string) (*aggregates.Network, error)
}

// StoredEvent is one entry of a customer's activity log
type StoredEvent struct {
	EventID    string                 `json:"eventId"`
	EventType  string                 `json:"eventType"`
	CustomerID string                 `json:"customerId"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data"`
}

// EventStore defines the interface for event persistence
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves the most recent events for a customer, newest first
	GetEvents(ctx context.Context, customerID valueobjects.CustomerID, limit int) ([]StoredEvent, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error
}

// Lock is a held distributed lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker acquires per-resource locks shared across instances
type Locker interface {
	// Acquire waits up to wait for the lock and holds it for at most ttl
	Acquire(ctx context.Context, resource string, ttl, wait time.Duration) (Lock, error)
}

// ErrLockNotAcquired is returned by Acquire when another holder kept the lock for the whole wait
var ErrLockNotAcquired = errors.New("lock is held by another owner")
