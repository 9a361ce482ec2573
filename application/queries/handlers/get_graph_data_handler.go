package handlers

import (
	"context"

	"chatarchive/application/ports"
	"chatarchive/application/queries"
	"chatarchive/domain/core/entities"
	domainservices "chatarchive/domain/services"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GetGraphDataHandler handles graph data visualization queries
type GetGraphDataHandler struct {
	entries   ports.EntryRepository
	store     ports.RelationshipStore
	projector *domainservices.GraphProjector
	scorer    *domainservices.SimilarityScorer
	logger    *zap.Logger
}

// NewGetGraphDataHandler creates a new graph data handler
func NewGetGraphDataHandler(
	entries ports.EntryRepository,
	store ports.RelationshipStore,
	projector *domainservices.GraphProjector,
	scorer *domainservices.SimilarityScorer,
	logger *zap.Logger,
) *GetGraphDataHandler {
	return &GetGraphDataHandler{
		entries:   entries,
		store:     store,
		projector: projector,
		scorer:    scorer,
		logger:    logger,
	}
}

// Handle loads entries and relationships concurrently and projects them
func (h *GetGraphDataHandler) Handle(ctx context.Context, query queries.GetGraphDataQuery) (*domainservices.GraphData, error) {
	minScore := query.MinScore
	if minScore == 0 {
		minScore = h.scorer.Threshold()
	}

	var (
		all  []*entities.Entry
		rels []entities.Relationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = h.entries.GetAll(gctx)
		return pkgerrors.Unavailable("entry repository", err)
	})
	g.Go(func() error {
		var err error
		rels, err = h.store.QueryAllForVisualization(gctx, minScore)
		return pkgerrors.Unavailable("relationship store", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := h.projector.Project(all, rels)
	h.logger.Debug("Graph data projected",
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("edges", len(data.Edges)),
	)
	return &data, nil
}
