// Package main implements the Lambda that runs relationship detection for
// freshly imported entries. It is subscribed to entry.imported events on the
// archive's EventBridge bus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chatarchive/application/commands"
	"chatarchive/application/commands/bus"
	"chatarchive/domain/events"
	"chatarchive/infrastructure/config"
	"chatarchive/infrastructure/di"
	pkgerrors "chatarchive/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// dispatcher is the slice of the command bus this handler needs
type dispatcher interface {
	Dispatch(ctx context.Context, cmd bus.Command) (interface{}, error)
}

type handler struct {
	cmdBus dispatcher
	logger *zap.Logger
}

// entryImportedDetail is the part of the entry.imported payload we read
type entryImportedDetail struct {
	EntryID   string `json:"entry_id"`
	EventType string `json:"event_type"`
}

// entryIDFromEvent extracts the entry to process. Events of any other type
// yield an empty id and no error.
func entryIDFromEvent(evt awsevents.CloudWatchEvent) (string, error) {
	if evt.DetailType != events.TypeEntryImported {
		return "", nil
	}
	var detail entryImportedDetail
	if err := json.Unmarshal(evt.Detail, &detail); err != nil {
		return "", fmt.Errorf("malformed %s detail: %w", events.TypeEntryImported, err)
	}
	if detail.EntryID == "" {
		return "", fmt.Errorf("%s event %s carries no entry id", events.TypeEntryImported, evt.ID)
	}
	return detail.EntryID, nil
}

// Handle runs one detection pass. Only retryable failures are returned so
// that EventBridge redelivers; a pass already in flight counts as handled.
func (h *handler) Handle(ctx context.Context, evt awsevents.CloudWatchEvent) error {
	entryID, err := entryIDFromEvent(evt)
	if err != nil {
		h.logger.Error("Dropping undecodable event", zap.String("eventID", evt.ID), zap.Error(err))
		return nil
	}
	if entryID == "" {
		h.logger.Debug("Ignoring event", zap.String("detailType", evt.DetailType))
		return nil
	}

	_, err = h.cmdBus.Dispatch(ctx, commands.DetectRelationshipsCommand{EntryID: entryID})
	switch {
	case err == nil:
		return nil
	case pkgerrors.IsConflict(err):
		h.logger.Info("Detection already running for entry", zap.String("entryID", entryID))
		return nil
	case pkgerrors.IsRetryable(err):
		return err
	default:
		h.logger.Error("Detection failed permanently", zap.String("entryID", entryID), zap.Error(err))
		return nil
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, _, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	h := &handler{cmdBus: container.CommandBus, logger: container.Logger}
	lambda.Start(h.Handle)
}
