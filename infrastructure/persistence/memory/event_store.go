package memory

import (
	"context"
	"sync"

	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
)

// EventStore keeps a bounded activity log per customer in process memory
type EventStore struct {
	mu             sync.RWMutex
	byCustomer     map[string][]ports.StoredEvent
	maxPerCustomer int
}

// NewEventStore creates a log keeping at most maxPerCustomer entries per
// customer. Zero means unbounded.
func NewEventStore(maxPerCustomer int) *EventStore {
	return &EventStore{
		byCustomer:     make(map[string][]ports.StoredEvent),
		maxPerCustomer: maxPerCustomer,
	}
}

// SaveEvents appends events in order
func (s *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := make([]ports.StoredEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		entry, err := ports.NewStoredEvent(event)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		log := append(s.byCustomer[entry.CustomerID], entry)
		if s.maxPerCustomer > 0 && len(log) > s.maxPerCustomer {
			log = log[len(log)-s.maxPerCustomer:]
		}
		s.byCustomer[entry.CustomerID] = log
	}
	return nil
}

// GetEvents returns up to limit entries, newest first
func (s *EventStore) GetEvents(ctx context.Context, customerID valueobjects.CustomerID, limit int) ([]ports.StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.byCustomer[customerID.String()]
	n := len(log)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]ports.StoredEvent, 0, n)
	for i := len(log) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, log[i])
	}
	return out, nil
}
