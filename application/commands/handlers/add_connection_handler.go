package handlers

import (
	"context"
	"fmt"

	"esn-backend/application/commands"
	"esn-backend/application/queries"
	"esn-backend/application/services"
	"esn-backend/domain/core/entities"

	"go.uber.org/zap"
)

// AddConnectionResult is the outcome of an add
type AddConnectionResult struct {
	Connection queries.ConnectionView `json:"connection"`
	Network    *queries.NetworkView   `json:"network"`
}

// AddConnectionHandler handles connection creation commands
type AddConnectionHandler struct {
	orchestrator *MutationOrchestrator
	logger       *zap.Logger
}

// NewAddConnectionHandler creates a new add connection handler
func NewAddConnectionHandler(orchestrator *MutationOrchestrator, logger *zap.Logger) *AddConnectionHandler {
	return &AddConnectionHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Handle executes the add connection command
func (h *AddConnectionHandler) Handle(ctx context.Context, cmd commands.AddConnectionCommand) (*AddConnectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	if err := cmd.CheckLimits(h.orchestrator.cfg); err != nil {
		return nil, err
	}

	var conn *entities.Connection
	view, err := h.orchestrator.Run(ctx, cmd.CustomerID, func(ctx context.Context, list *services.ConnectionList) error {
		var err error
		conn, err = list.Add(ctx, services.AddConnectionInput{
			ID:               cmd.ConnectionID,
			Name:             cmd.Name,
			Email:            cmd.Email,
			RelationshipType: cmd.RelationshipType,
			ExpectedVersion:  cmd.ExpectedVersion,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("Connection added",
		zap.String("customerID", cmd.CustomerID.String()),
		zap.String("connectionID", conn.ID().String()),
		zap.String("relationshipType", conn.RelationshipType().String()),
		zap.Int("nodeCount", view.NodeCount),
	)

	return &AddConnectionResult{
		Connection: queries.NewConnectionView(conn),
		Network:    view,
	}, nil
}
