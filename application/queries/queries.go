package queries

import (
	"time"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	domainservices "chatarchive/domain/services"
	"chatarchive/pkg/utils"
)

// MaxLimit caps list sizes requested by callers.
const MaxLimit = 100

// GetEntryQuery fetches a single entry
type GetEntryQuery struct {
	EntryID string `validate:"required"`
}

// Validate validates the query
func (q GetEntryQuery) Validate() error { return utils.ValidateStruct(q) }

// GetRelatedQuery lists the entries related to one entry
type GetRelatedQuery struct {
	EntryID string `validate:"required"`
	Limit   int    `validate:"min=0,max=100"`
}

// Validate validates the query
func (q GetRelatedQuery) Validate() error { return utils.ValidateStruct(q) }

// GetSuggestionsQuery ranks every other entry by embedding-enhanced
// similarity. Nothing is persisted.
type GetSuggestionsQuery struct {
	EntryID string `validate:"required"`
	Limit   int    `validate:"min=0,max=100"`
}

// Validate validates the query
func (q GetSuggestionsQuery) Validate() error { return utils.ValidateStruct(q) }

// GetGraphDataQuery builds the visualization dataset. A zero MinScore uses
// the similarity threshold.
type GetGraphDataQuery struct {
	MinScore float64 `validate:"min=0,max=1"`
}

// Validate validates the query
func (q GetGraphDataQuery) Validate() error { return utils.ValidateStruct(q) }

// EntryView is the read model of an entry
type EntryView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Tags         []string  `json:"tags"`
	SourceLabel  string    `json:"sourceLabel"`
	HasEmbedding bool      `json:"hasEmbedding"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewEntryView projects an entry into its read model
func NewEntryView(e *entities.Entry) EntryView {
	return EntryView{
		ID:           e.ID(),
		Title:        e.Title(),
		Summary:      e.Summary(),
		Tags:         e.Tags(),
		SourceLabel:  e.SourceLabel(),
		HasEmbedding: e.HasEmbedding(),
		CreatedAt:    e.CreatedAt(),
		UpdatedAt:    e.UpdatedAt(),
	}
}

// RelatedEntry is one result of GetRelatedQuery
type RelatedEntry struct {
	Entry EntryView                     `json:"entry"`
	Score float64                       `json:"score"`
	Kind  valueobjects.RelationshipKind `json:"kind"`
}

// GetRelatedResult lists related entries, strongest first
type GetRelatedResult struct {
	EntryID string         `json:"entryId"`
	Related []RelatedEntry `json:"related"`
}

// Suggestion is one result of GetSuggestionsQuery
type Suggestion struct {
	Entry   EntryView              `json:"entry"`
	Score   float64                `json:"score"`
	Signals domainservices.Signals `json:"signals"`
	Linked  bool                   `json:"linked"`
}

// GetSuggestionsResult lists suggestions, strongest first
type GetSuggestionsResult struct {
	EntryID     string       `json:"entryId"`
	Suggestions []Suggestion `json:"suggestions"`
}
