package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/commands/bus"
	"chatarchive/application/queries"
	querybus "chatarchive/application/queries/bus"
	"chatarchive/pkg/common"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EntryHandler handles entry-related HTTP requests
type EntryHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// ImportEntryRequest represents the request body for importing a conversation
type ImportEntryRequest struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	SourceLabel string     `json:"sourceLabel,omitempty"`
	BodyText    string     `json:"bodyText,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	DetectNow   bool       `json:"detectNow,omitempty"`
}

// ImportEntry handles POST /entries
func (h *EntryHandler) ImportEntry(w http.ResponseWriter, r *http.Request) {
	var req ImportEntryRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}

	cmd := commands.ImportEntryCommand{
		ID:          req.ID,
		Title:       req.Title,
		Summary:     req.Summary,
		Tags:        req.Tags,
		SourceLabel: req.SourceLabel,
		BodyText:    req.BodyText,
		DetectNow:   req.DetectNow,
	}
	if req.CreatedAt != nil {
		cmd.CreatedAt = req.CreatedAt.UTC()
	}

	result, err := h.commandBus.Dispatch(r.Context(), cmd)
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, result)
}

// GetEntry handles GET /entries/{entryID}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetEntryQuery{EntryID: chi.URLParam(r, "entryID")})
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteEntry handles DELETE /entries/{entryID}; relationships touching the
// entry are removed with it.
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.DeleteEntryCommand{EntryID: chi.URLParam(r, "entryID")}); err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetectRelationships handles POST /entries/{entryID}/detect
func (h *EntryHandler) DetectRelationships(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Dispatch(r.Context(), commands.DetectRelationshipsCommand{EntryID: chi.URLParam(r, "entryID")})
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetRelated handles GET /entries/{entryID}/related?limit=
func (h *EntryHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	result, err := h.queryBus.Ask(r.Context(), queries.GetRelatedQuery{EntryID: chi.URLParam(r, "entryID"), Limit: limit})
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	related := result.(*queries.GetRelatedResult)
	common.RespondWithMeta(w, http.StatusOK, related, h.meta(r, len(related.Related)))
}

// GetSuggestions handles GET /entries/{entryID}/suggestions?limit=
func (h *EntryHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	result, err := h.queryBus.Ask(r.Context(), queries.GetSuggestionsQuery{EntryID: chi.URLParam(r, "entryID"), Limit: limit})
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	suggestions := result.(*queries.GetSuggestionsResult)
	common.RespondWithMeta(w, http.StatusOK, suggestions, h.meta(r, len(suggestions.Suggestions)))
}

func (h *EntryHandler) meta(r *http.Request, count int) *common.MetaInfo {
	requestID, _ := common.GetRequestID(r.Context())
	return &common.MetaInfo{RequestID: requestID, Count: count}
}

// parseLimit reads ?limit=; absent means the handler default.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, pkgerrors.NewValidationError("limit must be a non-negative integer")
	}
	if limit > queries.MaxLimit {
		return 0, pkgerrors.NewValidationError("limit must be at most " + strconv.Itoa(queries.MaxLimit))
	}
	return limit, nil
}
