package handlers

import (
	"context"
	"fmt"

	"esn-backend/application/ports"
	"esn-backend/application/queries"
	pkgerrors "esn-backend/pkg/errors"

	"go.uber.org/zap"
)

// GetActivityHandler lists recorded connection events
type GetActivityHandler struct {
	eventStore ports.EventStore
	logger     *zap.Logger
}

// NewGetActivityHandler creates a new activity query handler
func NewGetActivityHandler(eventStore ports.EventStore, logger *zap.Logger) *GetActivityHandler {
	return &GetActivityHandler{
		eventStore: eventStore,
		logger:     logger,
	}
}

// Handle executes the activity query
func (h *GetActivityHandler) Handle(ctx context.Context, query queries.GetActivityQuery) (*queries.ActivityView, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	if h.eventStore == nil {
		return nil, pkgerrors.NewUnavailableError("activity log")
	}

	limit := query.Limit
	if limit == 0 {
		limit = queries.DefaultActivityLimit
	}

	stored, err := h.eventStore.GetEvents(ctx, query.CustomerID, limit)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = []ports.StoredEvent{}
	}

	return &queries.ActivityView{
		CustomerID: query.CustomerID.String(),
		Events:     stored,
	}, nil
}
