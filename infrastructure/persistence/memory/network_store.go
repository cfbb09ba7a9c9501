package memory

import (
	"context"
	"sync"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/versioning"

	"go.uber.org/zap"
)

// NetworkStore keeps documents in process memory. Versions are content
// checksums, so writing identical bytes yields the same token.
type NetworkStore struct {
	mu        sync.RWMutex
	documents map[string][]byte
	logger    *zap.Logger
}

// NewNetworkStore creates an empty in-memory store
func NewNetworkStore(logger *zap.Logger) *NetworkStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkStore{
		documents: make(map[string][]byte),
		logger:    logger,
	}
}

// Load returns the stored document, or Exists=false when there is none
func (s *NetworkStore) Load(ctx context.Context, customerID valueobjects.CustomerID) (*ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.documents[customerID.String()]
	if !ok {
		return &ports.Document{CustomerID: customerID}, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return &ports.Document{
		CustomerID: customerID,
		Value:      out,
		Version:    versioning.Checksum(value),
		Exists:     true,
	}, nil
}

// Save replaces the document if expectedVersion matches the stored one
func (s *NetworkStore) Save(ctx context.Context, customerID valueobjects.CustomerID, value []byte, expectedVersion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := customerID.String()
	current, exists := s.documents[key]

	currentVersion := ""
	if exists {
		currentVersion = versioning.Checksum(current)
	}
	if currentVersion != expectedVersion {
		s.logger.Debug("Rejected stale write",
			zap.String("customerID", key),
			zap.String("expected", expectedVersion),
			zap.String("current", currentVersion),
		)
		return "", ports.NewVersionConflictError(customerID)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.documents[key] = stored

	return versioning.Checksum(stored), nil
}

// Put seeds a raw value without a version check
func (s *NetworkStore) Put(customerID valueobjects.CustomerID, value []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.documents[customerID.String()] = stored
	return versioning.Checksum(stored)
}
