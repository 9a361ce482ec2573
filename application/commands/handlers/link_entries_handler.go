package handlers

import (
	"context"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/ports"
	"chatarchive/domain/core/entities"
	"chatarchive/domain/events"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// LinkEntriesHandler records manual links
type LinkEntriesHandler struct {
	entries   ports.EntryRepository
	store     ports.RelationshipStore
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewLinkEntriesHandler creates a new link handler
func NewLinkEntriesHandler(
	entries ports.EntryRepository,
	store ports.RelationshipStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *LinkEntriesHandler {
	return &LinkEntriesHandler{
		entries:   entries,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle links both entries with a manual pair. Both entries must exist.
func (h *LinkEntriesHandler) Handle(ctx context.Context, cmd commands.LinkEntriesCommand) (*entities.Relationship, error) {
	for _, id := range []string{cmd.SourceID, cmd.TargetID} {
		if _, err := h.entries.GetByID(ctx, id); err != nil {
			if pkgerrors.IsNotFound(err) {
				return nil, err
			}
			return nil, pkgerrors.Unavailable("entry repository", err)
		}
	}

	now := time.Now().UTC()
	pair, err := entities.NewManualPair(cmd.SourceID, cmd.TargetID, now)
	if err != nil {
		return nil, err
	}
	if _, err := h.store.Upsert(ctx, pair); err != nil {
		return nil, pkgerrors.Unavailable("relationship store", err)
	}

	h.logger.Info("Entries linked",
		zap.String("sourceID", cmd.SourceID),
		zap.String("targetID", cmd.TargetID),
	)
	publishBestEffort(ctx, h.publisher, h.logger, events.NewRelationshipLinked(cmd.SourceID, cmd.TargetID, now))

	forward := pair.Forward()
	return &forward, nil
}

// publishBestEffort logs publish failures instead of failing the command.
func publishBestEffort(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, event events.DomainEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
