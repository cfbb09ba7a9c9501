package events

import (
	"time"

	"esn-backend/domain/core/valueobjects"
)

// SourceBackend is the event source published to the bus
const SourceBackend = "esn.backend"

// Event types
const (
	TypeConnectionAdded   = "esn.connection_added"
	TypeConnectionRemoved = "esn.connection_removed"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// ConnectionAdded is raised when a connection is appended to a customer's network
type ConnectionAdded struct {
	BaseEvent
	CustomerID       string                    `json:"customer_id"`
	ConnectionID     valueobjects.ConnectionID `json:"connection_id"`
	Name             string                    `json:"name"`
	RelationshipType string                    `json:"relationship_type"`
	NodeCount        int                       `json:"node_count"`
}

// NewConnectionAdded creates a ConnectionAdded event
func NewConnectionAdded(
	customerID valueobjects.CustomerID,
	connectionID valueobjects.ConnectionID,
	name string,
	relationshipType valueobjects.RelationshipType,
	nodeCount int,
	timestamp time.Time,
) ConnectionAdded {
	return ConnectionAdded{
		BaseEvent: BaseEvent{
			AggregateID: customerID.String(),
			EventType:   TypeConnectionAdded,
			Timestamp:   timestamp,
			Version:     1,
		},
		CustomerID:       customerID.String(),
		ConnectionID:     connectionID,
		Name:             name,
		RelationshipType: relationshipType.String(),
		NodeCount:        nodeCount,
	}
}

// ConnectionRemoved is raised when a connection is filtered out of a network
type ConnectionRemoved struct {
	BaseEvent
	CustomerID   string                    `json:"customer_id"`
	ConnectionID valueobjects.ConnectionID `json:"connection_id"`
	NodeCount    int                       `json:"node_count"`
}

// NewConnectionRemoved creates a ConnectionRemoved event
func NewConnectionRemoved(
	customerID valueobjects.CustomerID,
	connectionID valueobjects.ConnectionID,
	nodeCount int,
	timestamp time.Time,
) ConnectionRemoved {
	return ConnectionRemoved{
		BaseEvent: BaseEvent{
			AggregateID: customerID.String(),
			EventType:   TypeConnectionRemoved,
			Timestamp:   timestamp,
			Version:     1,
		},
		CustomerID:   customerID.String(),
		ConnectionID: connectionID,
		NodeCount:    nodeCount,
	}
}
