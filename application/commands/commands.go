package commands

import (
	"time"

	"chatarchive/application/services"
	"chatarchive/pkg/utils"
)

// DetectRelationshipsCommand runs a detection pass for one entry
type DetectRelationshipsCommand struct {
	EntryID string `json:"entryId" validate:"required"`
}

// Validate validates the command
func (c DetectRelationshipsCommand) Validate() error { return utils.ValidateStruct(c) }

// LinkEntriesCommand records a manual relationship between two entries
type LinkEntriesCommand struct {
	SourceID string `json:"sourceId" validate:"required"`
	TargetID string `json:"targetId" validate:"required,nefield=SourceID"`
}

// Validate validates the command
func (c LinkEntriesCommand) Validate() error { return utils.ValidateStruct(c) }

// UnlinkEntriesCommand removes both rows of a pair, whatever its kind
type UnlinkEntriesCommand struct {
	SourceID string `json:"sourceId" validate:"required"`
	TargetID string `json:"targetId" validate:"required,nefield=SourceID"`
}

// Validate validates the command
func (c UnlinkEntriesCommand) Validate() error { return utils.ValidateStruct(c) }

// ImportEntryCommand stores a conversation transcript. Missing title or tags
// are filled in by the summarizer when one is configured.
type ImportEntryCommand struct {
	ID          string    `json:"id,omitempty" validate:"max=128"`
	Title       string    `json:"title" validate:"required_without=BodyText,max=300"`
	Summary     string    `json:"summary" validate:"max=4000"`
	Tags        []string  `json:"tags" validate:"max=50,dive,min=1,max=64"`
	SourceLabel string    `json:"sourceLabel" validate:"max=64"`
	BodyText    string    `json:"bodyText"`
	CreatedAt   time.Time `json:"createdAt"`
	DetectNow   bool      `json:"detectNow"`
}

// Validate validates the command
func (c ImportEntryCommand) Validate() error { return utils.ValidateStruct(c) }

// ImportEntryResult describes a stored entry
type ImportEntryResult struct {
	EntryID    string                    `json:"entryId"`
	Summarized bool                      `json:"summarized"`
	Embedded   bool                      `json:"embedded"`
	Detection  *services.DetectionResult `json:"detection,omitempty"`
}

// DeleteEntryCommand removes an entry and every relationship touching it
type DeleteEntryCommand struct {
	EntryID string `json:"entryId" validate:"required"`
}

// Validate validates the command
func (c DeleteEntryCommand) Validate() error { return utils.ValidateStruct(c) }
