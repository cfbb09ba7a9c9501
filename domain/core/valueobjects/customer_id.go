package valueobjects

import (
	"fmt"
	"strings"

	pkgerrors "esn-backend/pkg/errors"
)

const customerGIDPrefix = "gid://shopify/Customer/"

// CustomerID identifies the customer that owns a network. It is the center
// of the star: every edge starts here.
type CustomerID struct {
	value string
}

// NewCustomerID creates a CustomerID from either a full GID or a bare numeric id
func NewCustomerID(raw string) (CustomerID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CustomerID{}, pkgerrors.NewValidationError("customer ID cannot be empty")
	}

	if strings.HasPrefix(raw, "gid://") {
		if !strings.HasPrefix(raw, customerGIDPrefix) || len(raw) == len(customerGIDPrefix) {
			return CustomerID{}, pkgerrors.NewValidationError(fmt.Sprintf("not a customer GID: %s", raw))
		}
		return CustomerID{value: raw}, nil
	}

	for _, r := range raw {
		if r < '0' || r > '9' {
			return CustomerID{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid customer ID: %s", raw))
		}
	}
	return CustomerID{value: customerGIDPrefix + raw}, nil
}

// MustCustomerID is NewCustomerID for constants and tests
func MustCustomerID(raw string) CustomerID {
	id, err := NewCustomerID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the GID form
func (id CustomerID) String() string {
	return id.value
}

// NumericID returns the trailing numeric component of the GID
func (id CustomerID) NumericID() string {
	return strings.TrimPrefix(id.value, customerGIDPrefix)
}

// Equals checks if two CustomerIDs are equal
func (id CustomerID) Equals(other CustomerID) bool {
	return id.value == other.value
}

// IsZero checks if the CustomerID is the zero value
func (id CustomerID) IsZero() bool {
	return id.value == ""
}
