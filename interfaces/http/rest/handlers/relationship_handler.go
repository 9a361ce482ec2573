package handlers

import (
	"net/http"

	"chatarchive/application/commands"
	"chatarchive/application/commands/bus"
	"chatarchive/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RelationshipHandler handles manual link management
type RelationshipHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(commandBus *bus.CommandBus, logger *zap.Logger) *RelationshipHandler {
	return &RelationshipHandler{commandBus: commandBus, logger: logger}
}

// LinkRequest represents the request body for a manual link
type LinkRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

// Link handles POST /relationships
func (h *RelationshipHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}

	result, err := h.commandBus.Dispatch(r.Context(), commands.LinkEntriesCommand{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
	})
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// Unlink handles DELETE /relationships/{sourceID}/{targetID}. Both directions
// are removed whatever the kind.
func (h *RelationshipHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	cmd := commands.UnlinkEntriesCommand{
		SourceID: chi.URLParam(r, "sourceID"),
		TargetID: chi.URLParam(r, "targetID"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
