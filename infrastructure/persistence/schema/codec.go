package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"esn-backend/domain/core/aggregates"
	"esn-backend/domain/core/valueobjects"
)

// ParseError reports a stored value that could not be decoded
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed connection list: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// JSONCodec implements ports.SnapshotCodec for the {nodes, edges} layout
type JSONCodec struct {
	evolution *SchemaEvolution
}

// NewJSONCodec creates a codec that upgrades documents through evolution
func NewJSONCodec(evolution *SchemaEvolution) *JSONCodec {
	if evolution == nil {
		evolution = NewSchemaEvolution()
	}
	return &JSONCodec{evolution: evolution}
}

// Encode serializes the network at the current schema version
func (c *JSONCodec) Encode(network *aggregates.Network) ([]byte, error) {
	return marshalSnapshot(network.Snapshot(c.evolution.GetCurrentVersion()))
}

// Decode parses value, upgrades it and rebuilds the network. Any failure
// is returned as a *ParseError. An empty value decodes to an empty network.
func (c *JSONCodec) Decode(customerID valueobjects.CustomerID, value []byte, version string) (*aggregates.Network, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return aggregates.ReconstructNetwork(customerID, nil, version), nil
	}

	var snap aggregates.Snapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return nil, &ParseError{Err: err}
	}

	if _, err := c.evolution.Upgrade(&snap); err != nil {
		return nil, &ParseError{Err: err}
	}

	return aggregates.NetworkFromSnapshot(customerID, snap, version), nil
}
