package ports

import (
	"encoding/json"
	"fmt"

	"esn-backend/domain/events"

	"github.com/google/uuid"
)

// NewStoredEvent flattens a domain event into an activity log entry with a fresh id
func NewStoredEvent(event events.DomainEvent) (StoredEvent, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	data := make(map[string]interface{})
	if err := json.Unmarshal(raw, &data); err != nil {
		return StoredEvent{}, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	return StoredEvent{
		EventID:    uuid.NewString(),
		EventType:  event.GetEventType(),
		CustomerID: event.GetAggregateID(),
		Timestamp:  event.GetTimestamp().UTC(),
		Data:       data,
	}, nil
}
