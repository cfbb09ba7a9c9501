package queries

import (
	"time"

	"esn-backend/domain/core/aggregates"
	"esn-backend/domain/core/entities"
	"esn-backend/domain/core/valueobjects"
	pkgerrors "esn-backend/pkg/errors"
)

// GetNetworkQuery represents a query for one customer's connection list
type GetNetworkQuery struct {
	CustomerID valueobjects.CustomerID `json:"customer_id"`
	// SkipCache forces a read from the store
	SkipCache bool `json:"-"`
}

// Validate validates the query
func (q GetNetworkQuery) Validate() error {
	if q.CustomerID.IsZero() {
		return pkgerrors.NewValidationError("customer ID is required")
	}
	return nil
}

// NetworkView is the read model of a network
type NetworkView struct {
	CustomerID string           `json:"customerId"`
	Nodes      []ConnectionView `json:"nodes"`
	Edges      []EdgeView       `json:"edges"`
	NodeCount  int              `json:"nodeCount"`
	EdgeCount  int              `json:"edgeCount"`
	Version    string           `json:"version"`
	Status     string           `json:"status"`
	ParseError string           `json:"parseError,omitempty"`
}

// ConnectionView is one node of the view
type ConnectionView struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Email            string                 `json:"email,omitempty"`
	RelationshipType string                 `json:"relationshipType"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	AddedAt          *time.Time             `json:"addedAt,omitempty"`
}

// EdgeView is one derived edge of the view
type EdgeView struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// NewNetworkView projects an aggregate into its read model
func NewNetworkView(network *aggregates.Network, status string) *NetworkView {
	conns := network.Connections()
	view := &NetworkView{
		CustomerID: network.CustomerID().String(),
		Nodes:      make([]ConnectionView, 0, len(conns)),
		Edges:      make([]EdgeView, 0, len(conns)),
		NodeCount:  network.NodeCount(),
		EdgeCount:  network.EdgeCount(),
		Version:    network.Version(),
		Status:     status,
	}

	for _, conn := range conns {
		view.Nodes = append(view.Nodes, NewConnectionView(conn))
	}
	for _, edge := range network.Edges() {
		view.Edges = append(view.Edges, EdgeView{
			From: edge.From.String(),
			To:   edge.To.String(),
			Type: edge.Type.String(),
		})
	}

	return view
}

// NewConnectionView projects one connection
func NewConnectionView(conn *entities.Connection) ConnectionView {
	view := ConnectionView{
		ID:               conn.ID().String(),
		Name:             conn.Name(),
		Email:            conn.Email(),
		RelationshipType: conn.RelationshipType().String(),
		Metadata:         conn.Metadata(),
	}
	if t, ok := conn.AddedAt(); ok {
		view.AddedAt = &t
	}
	return view
}

// FindNode returns the node with the given id
func (v *NetworkView) FindNode(id string) (ConnectionView, bool) {
	for _, node := range v.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return ConnectionView{}, false
}
