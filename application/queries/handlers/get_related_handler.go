package handlers

import (
	"context"

	"chatarchive/application/ports"
	"chatarchive/application/queries"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// GetRelatedHandler joins stored relationships with their entries
type GetRelatedHandler struct {
	entries      ports.EntryRepository
	store        ports.RelationshipStore
	defaultLimit int
	logger       *zap.Logger
}

// NewGetRelatedHandler creates a new related entries handler
func NewGetRelatedHandler(entries ports.EntryRepository, store ports.RelationshipStore, defaultLimit int, logger *zap.Logger) *GetRelatedHandler {
	return &GetRelatedHandler{
		entries:      entries,
		store:        store,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Handle lists related entries, score descending and newest first on ties.
// Rows whose entry has vanished are skipped; an unknown id yields an empty list.
func (h *GetRelatedHandler) Handle(ctx context.Context, query queries.GetRelatedQuery) (*queries.GetRelatedResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	rows, err := h.store.QueryRelated(ctx, query.EntryID, 0)
	if err != nil {
		return nil, pkgerrors.Unavailable("relationship store", err)
	}

	result := &queries.GetRelatedResult{EntryID: query.EntryID, Related: []queries.RelatedEntry{}}
	for _, row := range rows {
		if limit > 0 && len(result.Related) >= limit {
			break
		}
		entry, err := h.entries.GetByID(ctx, row.TargetID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				h.logger.Debug("Skipping relationship to missing entry",
					zap.String("entryID", query.EntryID),
					zap.String("targetID", row.TargetID),
				)
				continue
			}
			return nil, pkgerrors.Unavailable("entry repository", err)
		}
		result.Related = append(result.Related, queries.RelatedEntry{
			Entry: queries.NewEntryView(entry),
			Score: row.Score.Float64(),
			Kind:  row.Kind,
		})
	}
	return result, nil
}
