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

// DeleteEntryHandler handles entry deletion commands
type DeleteEntryHandler struct {
	entries   ports.EntryRepository
	store     ports.RelationshipStore
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewDeleteEntryHandler creates a new delete entry handler
func NewDeleteEntryHandler(
	entries ports.EntryRepository,
	store ports.RelationshipStore,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *DeleteEntryHandler {
	return &DeleteEntryHandler{
		entries:   entries,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle removes the entry's relationships first so a failure never leaves
// edges pointing at a deleted entry.
func (h *DeleteEntryHandler) Handle(ctx context.Context, cmd commands.DeleteEntryCommand) (struct{}, error) {
	if err := h.store.DeleteByEntry(ctx, cmd.EntryID); err != nil {
		return struct{}{}, pkgerrors.Unavailable("relationship store", err)
	}
	if err := h.entries.Delete(ctx, cmd.EntryID); err != nil {
		return struct{}{}, pkgerrors.Unavailable("entry repository", err)
	}

	h.logger.Info("Entry deleted", zap.String("entryID", cmd.EntryID))
	publishBestEffort(ctx, h.publisher, h.logger, events.NewEntryDeleted(cmd.EntryID, time.Now().UTC()))
	return struct{}{}, nil
}
