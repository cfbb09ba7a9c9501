package entities

import (
	"strings"
	"time"

	"esn-backend/domain/core/valueobjects"
)

// MetadataAddedAt is the metadata key holding the RFC3339 creation time
const MetadataAddedAt = "addedAt"

// Connection is one entry in a customer's relationship list.
// A connection is created and removed, never otherwise mutated.
type Connection struct {
	id               valueobjects.ConnectionID
	name             string
	email            string
	relationshipType valueobjects.RelationshipType
	metadata         map[string]interface{}
}

// NewConnection creates a new connection. Content is taken as given: the
// name may be empty and the email is not checked here.
func NewConnection(
	id valueobjects.ConnectionID,
	name, email string,
	relationshipType valueobjects.RelationshipType,
	now time.Time,
) *Connection {
	if id.IsZero() {
		id = valueobjects.NewConnectionID()
	}

	return &Connection{
		id:               id,
		name:             name,
		email:            strings.TrimSpace(email),
		relationshipType: relationshipType,
		metadata: map[string]interface{}{
			MetadataAddedAt: now.UTC().Format(time.RFC3339),
		},
	}
}

// ReconstructConnection rebuilds a connection from stored data
func ReconstructConnection(
	id valueobjects.ConnectionID,
	name, email string,
	relationshipType valueobjects.RelationshipType,
	metadata map[string]interface{},
) *Connection {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Connection{
		id:               id,
		name:             name,
		email:            email,
		relationshipType: relationshipType,
		metadata:         metadata,
	}
}

// ID returns the connection's identifier
func (c *Connection) ID() valueobjects.ConnectionID {
	return c.id
}

// Name returns the display name
func (c *Connection) Name() string {
	return c.name
}

// Email returns the optional email
func (c *Connection) Email() string {
	return c.email
}

// HasEmail reports whether an email was given
func (c *Connection) HasEmail() bool {
	return c.email != ""
}

// RelationshipType returns the edge label
func (c *Connection) RelationshipType() valueobjects.RelationshipType {
	return c.relationshipType
}

// Metadata returns a copy of the metadata map
func (c *Connection) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// AddedAt returns the creation time recorded in metadata, if parseable
func (c *Connection) AddedAt() (time.Time, bool) {
	raw, ok := c.metadata[MetadataAddedAt].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
