package valueobjects

import "strings"

// RelationshipType is the free text label of an edge ("friend", "family", ...)
type RelationshipType string

// NewRelationshipType trims the label and falls back to the default when empty
func NewRelationshipType(label, fallback string) RelationshipType {
	label = strings.TrimSpace(label)
	if label == "" {
		return RelationshipType(fallback)
	}
	return RelationshipType(label)
}

// String returns the label
func (t RelationshipType) String() string {
	return string(t)
}
