package queries

import (
	"esn-backend/application/ports"
	"esn-backend/domain/core/valueobjects"
	pkgerrors "esn-backend/pkg/errors"
)

// DefaultActivityLimit is used when a query does not set Limit
const DefaultActivityLimit = 50

// GetActivityQuery lists the most recent connection events of a customer
type GetActivityQuery struct {
	CustomerID valueobjects.CustomerID
	Limit      int
}

// Validate validates the query
func (q GetActivityQuery) Validate() error {
	if q.CustomerID.IsZero() {
		return pkgerrors.NewValidationError("customer ID is required")
	}
	if q.Limit < 0 || q.Limit > 500 {
		return pkgerrors.NewValidationError("limit must be between 0 and 500")
	}
	return nil
}

// ActivityView is the read model of the activity log
type ActivityView struct {
	CustomerID string              `json:"customerId"`
	Events     []ports.StoredEvent `json:"events"`
}
