package handlers

import (
	"context"
	"time"

	"chatarchive/application/commands"
	"chatarchive/application/ports"
	"chatarchive/domain/events"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// UnlinkEntriesHandler removes pairs on request
type UnlinkEntriesHandler struct {
	store     ports.RelationshipStore
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewUnlinkEntriesHandler creates a new unlink handler
func NewUnlinkEntriesHandler(store ports.RelationshipStore, publisher ports.EventPublisher, logger *zap.Logger) *UnlinkEntriesHandler {
	return &UnlinkEntriesHandler{store: store, publisher: publisher, logger: logger}
}

// Handle removes both rows. Unlinking an absent pair is a no-op.
func (h *UnlinkEntriesHandler) Handle(ctx context.Context, cmd commands.UnlinkEntriesCommand) (struct{}, error) {
	if err := h.store.Remove(ctx, cmd.SourceID, cmd.TargetID); err != nil {
		return struct{}{}, pkgerrors.Unavailable("relationship store", err)
	}
	h.logger.Info("Entries unlinked",
		zap.String("sourceID", cmd.SourceID),
		zap.String("targetID", cmd.TargetID),
	)
	publishBestEffort(ctx, h.publisher, h.logger, events.NewRelationshipUnlinked(cmd.SourceID, cmd.TargetID, time.Now().UTC()))
	return struct{}{}, nil
}
