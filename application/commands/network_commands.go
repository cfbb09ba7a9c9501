package commands

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"esn-backend/domain/config"
	"esn-backend/domain/core/valueobjects"
	pkgerrors "esn-backend/pkg/errors"
	"esn-backend/pkg/utils"
)

// AddConnectionCommand appends one connection to a customer's network.
// ConnectionID is generated by the caller so a retried request keeps its id.
type AddConnectionCommand struct {
	CustomerID       valueobjects.CustomerID   `json:"-"`
	ConnectionID     valueobjects.ConnectionID `json:"-"`
	Name             string                    `json:"name"`
	Email            string                    `json:"email" validate:"omitempty,email"`
	RelationshipType string                    `json:"relationshipType"`
	ExpectedVersion  *string                   `json:"-"`
}

// Validate checks the command before dispatch
func (c AddConnectionCommand) Validate() error {
	if c.CustomerID.IsZero() {
		return pkgerrors.NewValidationError("customer ID is required")
	}
	if c.ConnectionID.IsZero() {
		return pkgerrors.NewValidationError("connection ID is required")
	}
	c.Email = strings.TrimSpace(c.Email)
	return utils.ValidateStruct(c)
}

// CheckLimits enforces the configured field lengths, counted in characters
func (c AddConnectionCommand) CheckLimits(cfg *config.DomainConfig) error {
	fields := make(map[string]interface{})
	check := func(field, value string, max int) {
		if max > 0 && utf8.RuneCountInString(value) > max {
			fields[field] = fmt.Sprintf("%s must be at most %d characters", field, max)
		}
	}
	check("name", c.Name, cfg.MaxNameLength)
	check("email", strings.TrimSpace(c.Email), cfg.MaxEmailLength)
	check("relationshipType", c.RelationshipType, cfg.MaxRelationshipTypeLength)

	if len(fields) == 0 {
		return nil
	}
	return pkgerrors.NewValidationError("connection exceeds configured limits").
		WithCode("INVALID_INPUT").
		WithDetails(fields)
}

// RemoveConnectionCommand removes the connection with exactly this id
type RemoveConnectionCommand struct {
	CustomerID      valueobjects.CustomerID
	ConnectionID    valueobjects.ConnectionID
	ExpectedVersion *string
}

// Validate checks the command before dispatch
func (c RemoveConnectionCommand) Validate() error {
	if c.CustomerID.IsZero() {
		return pkgerrors.NewValidationError("customer ID is required")
	}
	if c.ConnectionID.IsZero() {
		return pkgerrors.NewValidationError("connection ID is required")
	}
	return nil
}
