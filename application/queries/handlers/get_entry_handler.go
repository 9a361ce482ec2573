package handlers

import (
	"context"

	"chatarchive/application/ports"
	"chatarchive/application/queries"
	pkgerrors "chatarchive/pkg/errors"
)

// GetEntryHandler handles single entry queries
type GetEntryHandler struct {
	entries ports.EntryRepository
}

// NewGetEntryHandler creates a new get entry handler
func NewGetEntryHandler(entries ports.EntryRepository) *GetEntryHandler {
	return &GetEntryHandler{entries: entries}
}

// Handle returns the entry or a NOT_FOUND error
func (h *GetEntryHandler) Handle(ctx context.Context, query queries.GetEntryQuery) (*queries.EntryView, error) {
	entry, err := h.entries.GetByID(ctx, query.EntryID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.Unavailable("entry repository", err)
	}
	view := queries.NewEntryView(entry)
	return &view, nil
}
