package aggregates

import (
	"errors"
	"fmt"
	"time"

	"esn-backend/domain/config"
	"esn-backend/domain/core/entities"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/events"
	pkgerrors "esn-backend/pkg/errors"
)

// Network is the aggregate root for one customer's connection list.
// Its edges are never stored: they are the star projection of the node
// list, one edge from the customer to each connection.
type Network struct {
	customerID  valueobjects.CustomerID
	connections []*entities.Connection
	version     string
	events      []events.DomainEvent
}

// Edge represents the relationship between the customer and one connection
type Edge struct {
	From valueobjects.CustomerID
	To   valueobjects.ConnectionID
	Type valueobjects.RelationshipType
}

// NewNetwork creates an empty network that has never been persisted
func NewNetwork(customerID valueobjects.CustomerID) *Network {
	return &Network{
		customerID:  customerID,
		connections: []*entities.Connection{},
		events:      []events.DomainEvent{},
	}
}

// ReconstructNetwork rebuilds a network from stored connections and the
// version token the store returned with them
func ReconstructNetwork(
	customerID valueobjects.CustomerID,
	connections []*entities.Connection,
	version string,
) *Network {
	if connections == nil {
		connections = []*entities.Connection{}
	}
	return &Network{
		customerID:  customerID,
		connections: connections,
		version:     version,
		events:      []events.DomainEvent{},
	}
}

// CustomerID returns the center of the star
func (n *Network) CustomerID() valueobjects.CustomerID {
	return n.customerID
}

// Version returns the store's version token for the state this network was read at
func (n *Network) Version() string {
	return n.version
}

// SetVersion records the token returned by a successful write
func (n *Network) SetVersion(version string) {
	n.version = version
}

// Connections returns the ordered node list
func (n *Network) Connections() []*entities.Connection {
	out := make([]*entities.Connection, len(n.connections))
	copy(out, n.connections)
	return out
}

// NodeCount returns the number of connections
func (n *Network) NodeCount() int {
	return len(n.connections)
}

// EdgeCount always equals NodeCount
func (n *Network) EdgeCount() int {
	return len(n.connections)
}

// IsEmpty reports whether the network holds no connections
func (n *Network) IsEmpty() bool {
	return len(n.connections) == 0
}

// Edges recomputes the star projection from scratch
func (n *Network) Edges() []Edge {
	edges := make([]Edge, 0, len(n.connections))
	for _, conn := range n.connections {
		edges = append(edges, Edge{
			From: n.customerID,
			To:   conn.ID(),
			Type: conn.RelationshipType(),
		})
	}
	return edges
}

// GetConnection finds a connection by exact id
func (n *Network) GetConnection(id valueobjects.ConnectionID) (*entities.Connection, bool) {
	for _, conn := range n.connections {
		if conn.ID().Equals(id) {
			return conn, true
		}
	}
	return nil, false
}

// AddConnection appends a connection to the end of the list
func (n *Network) AddConnection(conn *entities.Connection, cfg *config.DomainConfig) error {
	if conn == nil {
		return errors.New("connection cannot be nil")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if _, exists := n.GetConnection(conn.ID()); exists {
		return pkgerrors.NewConflictError(fmt.Sprintf("connection %s already exists", conn.ID()))
	}

	if len(n.connections) >= cfg.MaxConnections {
		return pkgerrors.NewValidationError(fmt.Sprintf("maximum connections reached: %d", cfg.MaxConnections)).
			WithCode("MAX_CONNECTIONS")
	}

	n.connections = append(n.connections, conn)

	n.addEvent(events.NewConnectionAdded(
		n.customerID,
		conn.ID(),
		conn.Name(),
		conn.RelationshipType(),
		len(n.connections),
		time.Now(),
	))

	return nil
}

// RemoveConnection filters the connection out by exact id match.
// It returns false when no connection had that id.
func (n *Network) RemoveConnection(id valueobjects.ConnectionID) bool {
	kept := make([]*entities.Connection, 0, len(n.connections))
	for _, conn := range n.connections {
		if !conn.ID().Equals(id) {
			kept = append(kept, conn)
		}
	}

	if len(kept) == len(n.connections) {
		return false
	}

	n.connections = kept

	n.addEvent(events.NewConnectionRemoved(n.customerID, id, len(kept), time.Now()))

	return true
}

// Clone returns an independent copy sharing the immutable connections.
// Pending events are not copied.
func (n *Network) Clone() *Network {
	return &Network{
		customerID:  n.customerID,
		connections: n.Connections(),
		version:     n.version,
		events:      []events.DomainEvent{},
	}
}

// Validate ensures the star invariants hold
func (n *Network) Validate() error {
	if n.customerID.IsZero() {
		return errors.New("network has no customer")
	}

	seen := make(map[string]bool, len(n.connections))
	for _, conn := range n.connections {
		if conn.ID().IsZero() {
			return errors.New("connection without id")
		}
		if seen[conn.ID().String()] {
			return fmt.Errorf("duplicate connection id %s", conn.ID())
		}
		seen[conn.ID().String()] = true
	}

	edges := n.Edges()
	if len(edges) != len(n.connections) {
		return errors.New("edge count mismatch")
	}
	for i, edge := range edges {
		if !edge.From.Equals(n.customerID) || !edge.To.Equals(n.connections[i].ID()) {
			return errors.New("edge does not match its node")
		}
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Network) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(n.events))
	copy(out, n.events)
	return out
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Network) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

func (n *Network) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}
