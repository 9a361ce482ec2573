package handlers

import (
	"context"

	"chatarchive/application/commands"
	"chatarchive/application/services"
)

// DetectRelationshipsHandler runs the detector on behalf of the command bus
type DetectRelationshipsHandler struct {
	detector *services.RelationshipDetector
}

// NewDetectRelationshipsHandler creates a new detect handler
func NewDetectRelationshipsHandler(detector *services.RelationshipDetector) *DetectRelationshipsHandler {
	return &DetectRelationshipsHandler{detector: detector}
}

// Handle executes the detect command
func (h *DetectRelationshipsHandler) Handle(ctx context.Context, cmd commands.DetectRelationshipsCommand) (*services.DetectionResult, error) {
	return h.detector.DetectAndLink(ctx, cmd.EntryID)
}
