package services

import (
	"context"
	"sync"
	"time"

	"esn-backend/application/ports"
	"esn-backend/domain/config"
	"esn-backend/domain/core/aggregates"
	"esn-backend/domain/core/entities"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
	pkgerrors "esn-backend/pkg/errors"

	"go.uber.org/zap"
)

// LoadStatus describes what Load found in the store
type LoadStatus string

const (
	// LoadStatusOK means the stored document was parsed
	LoadStatusOK LoadStatus = "ok"
	// LoadStatusEmpty means there was no document or its value was empty
	LoadStatusEmpty LoadStatus = "empty"
	// LoadStatusRecovered means the document was malformed and an empty list was used instead
	LoadStatusRecovered LoadStatus = "recovered"
)

// LoadResult reports the outcome of a Load
type LoadResult struct {
	Status     LoadStatus
	ParseError error
	NodeCount  int
	Version    string
}

// AddConnectionInput carries the fields of a new connection.
// A zero ID is replaced by a random UUID.
type AddConnectionInput struct {
	ID               valueobjects.ConnectionID
	Name             string
	Email            string
	RelationshipType string
	// ExpectedVersion, when set, pins the write to that version and
	// disables reload-and-retry on conflict.
	ExpectedVersion *string
}

// ConnectionList keeps one customer's connection list in memory and in sync
// with its stored document. Add and Remove are serialized; the in-memory
// state only advances after the store accepted the write.
type ConnectionList struct {
	mu sync.Mutex

	customerID valueobjects.CustomerID
	store      ports.NetworkStore
	codec      ports.SnapshotCodec
	cfg        *config.DomainConfig
	logger     *zap.Logger
	now        func() time.Time

	network *aggregates.Network
	status  LoadStatus
	loaded  bool
	pending []events.DomainEvent
}

// NewConnectionList creates a list for one customer. Nothing is read until Load.
func NewConnectionList(
	customerID valueobjects.CustomerID,
	store ports.NetworkStore,
	codec ports.SnapshotCodec,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ConnectionList {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionList{
		customerID: customerID,
		store:      store,
		codec:      codec,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		network:    aggregates.NewNetwork(customerID),
		status:     LoadStatusEmpty,
	}
}

// Load replaces the in-memory state with the stored document.
// Transport failures are returned and leave the state untouched; a
// malformed document is reported through the result, not as an error.
func (l *ConnectionList) Load(ctx context.Context) (*LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.loadLocked(ctx)
}

func (l *ConnectionList) loadLocked(ctx context.Context) (*LoadResult, error) {
	doc, err := l.store.Load(ctx, l.customerID)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Version: doc.Version}

	switch {
	case !doc.Exists || len(doc.Value) == 0:
		l.network = aggregates.ReconstructNetwork(l.customerID, nil, doc.Version)
		result.Status = LoadStatusEmpty

	default:
		network, decodeErr := l.codec.Decode(l.customerID, doc.Value, doc.Version)
		if decodeErr != nil {
			l.logger.Warn("Stored connection list is malformed, starting from an empty list",
				zap.String("customerID", l.customerID.String()),
				zap.Error(decodeErr),
			)
			l.network = aggregates.ReconstructNetwork(l.customerID, nil, doc.Version)
			result.Status = LoadStatusRecovered
			result.ParseError = decodeErr
		} else {
			l.network = network
			result.Status = LoadStatusOK
		}
	}

	l.status = result.Status
	l.loaded = true
	result.NodeCount = l.network.NodeCount()

	l.logger.Debug("Loaded connection list",
		zap.String("customerID", l.customerID.String()),
		zap.String("status", string(result.Status)),
		zap.Int("nodes", result.NodeCount),
	)

	return result, nil
}

// Add appends a connection and persists the full list. On success the
// stored connection is returned.
func (l *ConnectionList) Add(ctx context.Context, input AddConnectionInput) (*entities.Connection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := input.ID
	if id.IsZero() {
		id = valueobjects.NewConnectionID()
	}
	conn := entities.NewConnection(
		id,
		input.Name,
		input.Email,
		valueobjects.NewRelationshipType(input.RelationshipType, l.cfg.DefaultRelationshipType),
		l.now(),
	)

	_, err := l.mutateLocked(ctx, input.ExpectedVersion, func(n *aggregates.Network) (bool, error) {
		if err := n.AddConnection(conn, l.cfg); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Remove drops the connection with exactly this id and persists the list.
// It returns false, without writing, when no connection has the id.
func (l *ConnectionList) Remove(ctx context.Context, id valueobjects.ConnectionID, expectedVersion *string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.mutateLocked(ctx, expectedVersion, func(n *aggregates.Network) (bool, error) {
		return n.RemoveConnection(id), nil
	})
}

// mutateLocked applies one mutation to a copy of the state and writes it.
// Stale writes reload and re-apply the same mutation up to MaxConflictRetries times.
func (l *ConnectionList) mutateLocked(
	ctx context.Context,
	expectedVersion *string,
	apply func(n *aggregates.Network) (bool, error),
) (bool, error) {
	if !l.loaded {
		if _, err := l.loadLocked(ctx); err != nil {
			return false, err
		}
	}

	if expectedVersion != nil && *expectedVersion != l.network.Version() {
		return false, ports.NewVersionConflictError(l.customerID)
	}

	for attempt := 0; ; attempt++ {
		working := l.network.Clone()

		changed, err := apply(working)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}

		if err := working.Validate(); err != nil {
			return false, pkgerrors.NewInternalError("connection list invariant violated").WithCause(err)
		}

		value, err := l.codec.Encode(working)
		if err != nil {
			return false, pkgerrors.NewInternalError("failed to encode connection list").WithCause(err)
		}

		if l.status == LoadStatusRecovered {
			l.logger.Warn("Overwriting malformed connection list",
				zap.String("customerID", l.customerID.String()),
			)
		}

		newVersion, err := l.store.Save(ctx, l.customerID, value, working.Version())
		if err == nil {
			working.SetVersion(newVersion)
			l.pending = append(l.pending, working.GetUncommittedEvents()...)
			working.MarkEventsAsCommitted()
			l.network = working
			l.status = LoadStatusOK
			return true, nil
		}

		if !ports.IsVersionConflict(err) || expectedVersion != nil {
			return false, err
		}
		if attempt >= l.cfg.MaxConflictRetries {
			l.logger.Warn("Giving up after repeated stale writes",
				zap.String("customerID", l.customerID.String()),
				zap.Int("attempts", attempt+1),
			)
			return false, err
		}

		l.logger.Info("Stale write, reloading and re-applying",
			zap.String("customerID", l.customerID.String()),
			zap.Int("attempt", attempt+1),
		)
		if _, loadErr := l.loadLocked(ctx); loadErr != nil {
			return false, loadErr
		}
	}
}

// Snapshot returns the current nodes with their derived edges
func (l *ConnectionList) Snapshot() aggregates.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.network.Snapshot(l.cfg.SchemaVersion)
}

// Network returns a copy of the current aggregate
func (l *ConnectionList) Network() *aggregates.Network {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.network.Clone()
}

// Version returns the version token of the current state
func (l *ConnectionList) Version() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.network.Version()
}

// Status returns the status of the last load, or ok after a successful write
func (l *ConnectionList) Status() LoadStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.status
}

// DrainEvents returns and clears the events of writes that succeeded
func (l *ConnectionList) DrainEvents() []events.DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.pending
	l.pending = nil
	return out
}
