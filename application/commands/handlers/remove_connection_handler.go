package handlers

import (
	"context"
	"fmt"

	"esn-backend/application/commands"
	"esn-backend/application/queries"
	"esn-backend/application/services"

	"go.uber.org/zap"
)

// RemoveConnectionResult is the outcome of a remove
type RemoveConnectionResult struct {
	Removed bool                 `json:"removed"`
	Network *queries.NetworkView `json:"network"`
}

// RemoveConnectionHandler handles connection removal commands
type RemoveConnectionHandler struct {
	orchestrator *MutationOrchestrator
	logger       *zap.Logger
}

// NewRemoveConnectionHandler creates a new remove connection handler
func NewRemoveConnectionHandler(orchestrator *MutationOrchestrator, logger *zap.Logger) *RemoveConnectionHandler {
	return &RemoveConnectionHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Handle executes the remove connection command. Removing an id that is
// not in the list succeeds with Removed=false and writes nothing.
func (h *RemoveConnectionHandler) Handle(ctx context.Context, cmd commands.RemoveConnectionCommand) (*RemoveConnectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	var removed bool
	view, err := h.orchestrator.Run(ctx, cmd.CustomerID, func(ctx context.Context, list *services.ConnectionList) error {
		var err error
		removed, err = list.Remove(ctx, cmd.ConnectionID, cmd.ExpectedVersion)
		return err
	})
	if err != nil {
		return nil, err
	}

	if removed {
		h.logger.Info("Connection removed",
			zap.String("customerID", cmd.CustomerID.String()),
			zap.String("connectionID", cmd.ConnectionID.String()),
			zap.Int("nodeCount", view.NodeCount),
		)
	} else {
		h.logger.Debug("Connection not in list, nothing removed",
			zap.String("customerID", cmd.CustomerID.String()),
			zap.String("connectionID", cmd.ConnectionID.String()),
		)
	}

	return &RemoveConnectionResult{Removed: removed, Network: view}, nil
}
