package aggregates

import (
	"esn-backend/domain/core/entities"
	"esn-backend/domain/core/valueobjects"
)

// Snapshot is the persisted shape of a network. Edges are written for
// readers of the raw document but are recomputed on every load.
type Snapshot struct {
	SchemaVersion int                `json:"schemaVersion,omitempty"`
	Nodes         []ConnectionRecord `json:"nodes"`
	Edges         []EdgeRecord       `json:"edges"`
}

// ConnectionRecord is one stored node
type ConnectionRecord struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Email            string                 `json:"email,omitempty"`
	RelationshipType string                 `json:"relationshipType"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// EdgeRecord is one stored edge
type EdgeRecord struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// Snapshot projects the network into its persisted shape
func (n *Network) Snapshot(schemaVersion int) Snapshot {
	snap := Snapshot{
		SchemaVersion: schemaVersion,
		Nodes:         make([]ConnectionRecord, 0, len(n.connections)),
		Edges:         make([]EdgeRecord, 0, len(n.connections)),
	}

	for _, conn := range n.connections {
		snap.Nodes = append(snap.Nodes, ConnectionRecord{
			ID:               conn.ID().String(),
			Name:             conn.Name(),
			Email:            conn.Email(),
			RelationshipType: conn.RelationshipType().String(),
			Metadata:         conn.Metadata(),
		})
	}

	for _, edge := range n.Edges() {
		snap.Edges = append(snap.Edges, EdgeRecord{
			From: edge.From.String(),
			To:   edge.To.String(),
			Type: edge.Type.String(),
		})
	}

	return snap
}

// NetworkFromSnapshot rebuilds a network from a decoded document. Stored
// edges are ignored; nodes without an id cannot be addressed and are dropped.
// A repeated id is replaced with a fresh one so every node stays
// individually removable, whatever schema version wrote the document.
func NetworkFromSnapshot(customerID valueobjects.CustomerID, snap Snapshot, version string) *Network {
	connections := make([]*entities.Connection, 0, len(snap.Nodes))
	seen := make(map[string]bool, len(snap.Nodes))
	for _, rec := range snap.Nodes {
		id, err := valueobjects.NewConnectionIDFromString(rec.ID)
		if err != nil {
			continue
		}
		if seen[id.String()] {
			id = valueobjects.NewConnectionID()
		}
		seen[id.String()] = true
		connections = append(connections, entities.ReconstructConnection(
			id,
			rec.Name,
			rec.Email,
			valueobjects.RelationshipType(rec.RelationshipType),
			rec.Metadata,
		))
	}

	return ReconstructNetwork(customerID, connections, version)
}
