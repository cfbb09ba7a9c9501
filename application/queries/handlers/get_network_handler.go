package handlers

import (
	"context"
	"fmt"

	"esn-backend/application/queries"
	"esn-backend/application/services"

	"go.uber.org/zap"
)

// GetNetworkHandler handles network view queries
type GetNetworkHandler struct {
	lists  *services.ConnectionListFactory
	views  *services.ViewCache
	logger *zap.Logger
}

// NewGetNetworkHandler creates a new network query handler
func NewGetNetworkHandler(
	lists *services.ConnectionListFactory,
	views *services.ViewCache,
	logger *zap.Logger,
) *GetNetworkHandler {
	return &GetNetworkHandler{
		lists:  lists,
		views:  views,
		logger: logger,
	}
}

// Handle executes the network query. A malformed stored document yields an
// empty view with status "recovered"; only transport failures are errors.
func (h *GetNetworkHandler) Handle(ctx context.Context, query queries.GetNetworkQuery) (*queries.NetworkView, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	// Taken before the load so a concurrent write orphans what we cache
	generation := h.views.Generation(ctx, query.CustomerID)
	if !query.SkipCache {
		if view, ok := h.views.Get(ctx, query.CustomerID, generation); ok {
			return view, nil
		}
	}

	list := h.lists.New(query.CustomerID)
	result, err := list.Load(ctx)
	if err != nil {
		return nil, err
	}

	view := queries.NewNetworkView(list.Network(), string(result.Status))
	if result.ParseError != nil {
		view.ParseError = result.ParseError.Error()
	}

	// Recovered views are not cached so the next read retries the parse
	if result.Status != services.LoadStatusRecovered {
		h.views.Put(ctx, query.CustomerID, generation, view)
	}

	return view, nil
}
