package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"esn-backend/application/commands"
	"esn-backend/application/commands/bus"
	commandhandlers "esn-backend/application/commands/handlers"
	"esn-backend/application/ports"
	"esn-backend/application/queries"
	querybus "esn-backend/application/queries/bus"
	"esn-backend/domain/core/valueobjects"
	"esn-backend/domain/versioning"
	"esn-backend/pkg/common"
	pkgerrors "esn-backend/pkg/errors"
	"esn-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxRequestBytes = 16 << 10

// NetworkHandler handles connection list HTTP requests
type NetworkHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *NetworkHandler {
	return &NetworkHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// AddConnectionRequest represents the request body for adding a connection.
// The customer account extension writes unnamed connections to the same
// metafield; this API instead rejects a missing or blank name with 400.
// Length limits come from the domain configuration.
type AddConnectionRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	RelationshipType string `json:"relationshipType,omitempty"`
}

// GetNetwork handles GET /network
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customer(w, r)
	if !ok {
		return
	}

	query := queries.GetNetworkQuery{
		CustomerID: customerID,
		SkipCache:  strings.Contains(r.Header.Get("Cache-Control"), "no-cache"),
	}

	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	view, ok := result.(*queries.NetworkView)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected query result"))
		return
	}

	if view.Version != "" {
		etag := versioning.ETag(view.Version)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && versioning.ParseETag(match) == view.Version {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	h.respond(w, r, http.StatusOK, view, view.Version)
}

// AddConnection handles POST /network/connections
func (h *NetworkHandler) AddConnection(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customer(w, r)
	if !ok {
		return
	}

	var req AddConnectionRequest
	if err := common.ParseJSONBody(w, r, &req, maxRequestBytes); err != nil {
		if errors.Is(err, io.EOF) {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("Request body is required"))
			return
		}
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body: "+err.Error()))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.RelationshipType = strings.TrimSpace(req.RelationshipType)
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	expectedVersion := expectedVersionFrom(r)
	cmd := commands.AddConnectionCommand{
		CustomerID:       customerID,
		ConnectionID:     valueobjects.NewConnectionID(),
		Name:             req.Name,
		Email:            req.Email,
		RelationshipType: req.RelationshipType,
		ExpectedVersion:  expectedVersion,
	}

	result, err := h.commandBus.Execute(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, preconditionAware(err, expectedVersion))
		return
	}

	added, ok := result.Data.(*commandhandlers.AddConnectionResult)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected command result"))
		return
	}

	w.Header().Set("Location", "/api/v1/network/connections/"+added.Connection.ID)
	h.respond(w, r, http.StatusCreated, added, result.Version)
}

// RemoveConnection handles DELETE /network/connections/{connectionID}
func (h *NetworkHandler) RemoveConnection(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customer(w, r)
	if !ok {
		return
	}

	connectionID, err := valueobjects.NewConnectionIDFromString(chi.URLParam(r, "connectionID"))
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Connection ID is required"))
		return
	}

	expectedVersion := expectedVersionFrom(r)
	cmd := commands.RemoveConnectionCommand{
		CustomerID:      customerID,
		ConnectionID:    connectionID,
		ExpectedVersion: expectedVersion,
	}

	result, err := h.commandBus.Execute(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, preconditionAware(err, expectedVersion))
		return
	}

	removed, ok := result.Data.(*commandhandlers.RemoveConnectionResult)
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("unexpected command result"))
		return
	}

	h.respond(w, r, http.StatusOK, removed, result.Version)
}

// GetActivity handles GET /network/activity
func (h *NetworkHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customer(w, r)
	if !ok {
		return
	}

	limit := queries.DefaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be a number"))
			return
		}
		limit = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetActivityQuery{CustomerID: customerID, Limit: limit})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, result, "")
}

func (h *NetworkHandler) customer(w http.ResponseWriter, r *http.Request) (valueobjects.CustomerID, bool) {
	raw, ok := common.GetCustomerID(r.Context())
	if !ok {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return valueobjects.CustomerID{}, false
	}
	customerID, err := valueobjects.NewCustomerID(raw)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
		return valueobjects.CustomerID{}, false
	}
	return customerID, true
}

func (h *NetworkHandler) respond(w http.ResponseWriter, r *http.Request, status int, data interface{}, version string) {
	if version != "" {
		w.Header().Set("ETag", versioning.ETag(version))
	}
	common.RespondWithMeta(w, status, data, &common.MetaInfo{
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: utils.NowRFC3339(),
		Version:   version,
	})
}

// expectedVersionFrom reads If-Match. Absent or "*" means the server may
// reload and re-apply on a concurrent change.
func expectedVersionFrom(r *http.Request) *string {
	header := strings.TrimSpace(r.Header.Get("If-Match"))
	if header == "" || header == "*" {
		return nil
	}
	version := versioning.ParseETag(header)
	return &version
}

// preconditionAware turns a stale-write conflict into 412 when the client pinned a version
func preconditionAware(err error, expectedVersion *string) error {
	if expectedVersion == nil || !ports.IsVersionConflict(err) {
		return err
	}
	return pkgerrors.NewPreconditionFailedError("connection list changed since the supplied version").
		WithCause(err)
}
