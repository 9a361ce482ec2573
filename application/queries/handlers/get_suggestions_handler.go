package handlers

import (
	"context"
	"sort"

	"chatarchive/application/ports"
	"chatarchive/application/queries"
	domainservices "chatarchive/domain/services"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// GetSuggestionsHandler ranks "more like this" candidates. Embeddings are
// used when both entries carry one; nothing is written back.
type GetSuggestionsHandler struct {
	entries      ports.EntryRepository
	store        ports.RelationshipStore
	scorer       *domainservices.SimilarityScorer
	defaultLimit int
	logger       *zap.Logger
}

// NewGetSuggestionsHandler creates a new suggestions handler
func NewGetSuggestionsHandler(
	entries ports.EntryRepository,
	store ports.RelationshipStore,
	scorer *domainservices.SimilarityScorer,
	defaultLimit int,
	logger *zap.Logger,
) *GetSuggestionsHandler {
	return &GetSuggestionsHandler{
		entries:      entries,
		store:        store,
		scorer:       scorer,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Handle scores the entry against every other entry
func (h *GetSuggestionsHandler) Handle(ctx context.Context, query queries.GetSuggestionsQuery) (*queries.GetSuggestionsResult, error) {
	result := &queries.GetSuggestionsResult{EntryID: query.EntryID, Suggestions: []queries.Suggestion{}}

	target, err := h.entries.GetByID(ctx, query.EntryID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return result, nil
		}
		return nil, pkgerrors.Unavailable("entry repository", err)
	}
	others, err := h.entries.GetAllExcept(ctx, query.EntryID)
	if err != nil {
		return nil, pkgerrors.Unavailable("entry repository", err)
	}
	rows, err := h.store.QueryRelated(ctx, query.EntryID, 0)
	if err != nil {
		return nil, pkgerrors.Unavailable("relationship store", err)
	}
	linked := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		linked[r.TargetID] = struct{}{}
	}

	profile := h.scorer.Prepare(target)
	for _, other := range others {
		score, signals := h.scorer.ScoreWithEmbedding(profile, h.scorer.Prepare(other))
		if signals.VectorErr != nil {
			h.logger.Debug("Embedding skipped for suggestion",
				zap.String("entryID", query.EntryID),
				zap.String("candidateID", other.ID()),
				zap.Error(signals.VectorErr),
			)
		}
		if score <= 0 {
			continue
		}
		_, isLinked := linked[other.ID()]
		result.Suggestions = append(result.Suggestions, queries.Suggestion{
			Entry:   queries.NewEntryView(other),
			Score:   score,
			Signals: signals,
			Linked:  isLinked,
		})
	}

	sort.SliceStable(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Entry.CreatedAt.Equal(b.Entry.CreatedAt) {
			return a.Entry.CreatedAt.After(b.Entry.CreatedAt)
		}
		return a.Entry.ID < b.Entry.ID
	})

	limit := query.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > 0 && len(result.Suggestions) > limit {
		result.Suggestions = result.Suggestions[:limit]
	}
	return result, nil
}
