package entities

import (
	"sort"
	"strings"
	"time"

	pkgerrors "chatarchive/pkg/errors"
)

// Entry is one archived conversation or note.
// Identity is immutable; title, summary, tags, body and embedding may change.
type Entry struct {
	id          string
	title       string
	summary     string
	tags        []string
	sourceLabel string
	bodyText    string
	embedding   []float32
	createdAt   time.Time
	updatedAt   time.Time
}

// EntryContent groups the mutable fields of an entry.
type EntryContent struct {
	Title    string
	Summary  string
	Tags     []string
	BodyText string
}

// NewEntry creates a new entry with validation
func NewEntry(id, sourceLabel string, content EntryContent, createdAt time.Time) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.NewValidationError("entry id cannot be empty")
	}
	if strings.TrimSpace(content.Title) == "" {
		return nil, pkgerrors.NewValidationError("entry title cannot be empty")
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Entry{
		id:          id,
		title:       strings.TrimSpace(content.Title),
		summary:     content.Summary,
		tags:        NormalizeTags(content.Tags),
		sourceLabel: strings.TrimSpace(sourceLabel),
		bodyText:    content.BodyText,
		createdAt:   createdAt,
		updatedAt:   createdAt,
	}, nil
}

// ReconstructEntry rebuilds an entry from storage without validation
func ReconstructEntry(
	id, title, summary string,
	tags []string,
	sourceLabel, bodyText string,
	embedding []float32,
	createdAt, updatedAt time.Time,
) *Entry {
	return &Entry{
		id:          id,
		title:       title,
		summary:     summary,
		tags:        NormalizeTags(tags),
		sourceLabel: sourceLabel,
		bodyText:    bodyText,
		embedding:   embedding,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (e *Entry) ID() string           { return e.id }
func (e *Entry) Title() string        { return e.title }
func (e *Entry) Summary() string      { return e.summary }
func (e *Entry) SourceLabel() string  { return e.sourceLabel }
func (e *Entry) BodyText() string     { return e.bodyText }
func (e *Entry) CreatedAt() time.Time { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time { return e.updatedAt }

// Tags returns a copy of the normalized tag set
func (e *Entry) Tags() []string {
	out := make([]string, len(e.tags))
	copy(out, e.tags)
	return out
}

// Embedding returns the stored vector, or nil when none was computed.
func (e *Entry) Embedding() []float32 {
	if len(e.embedding) == 0 {
		return nil
	}
	out := make([]float32, len(e.embedding))
	copy(out, e.embedding)
	return out
}

// HasEmbedding reports whether a vector is attached
func (e *Entry) HasEmbedding() bool {
	return len(e.embedding) > 0
}

// UpdateContent replaces the mutable content fields.
func (e *Entry) UpdateContent(content EntryContent) error {
	if strings.TrimSpace(content.Title) == "" {
		return pkgerrors.NewValidationError("entry title cannot be empty")
	}
	e.title = strings.TrimSpace(content.Title)
	e.summary = content.Summary
	e.tags = NormalizeTags(content.Tags)
	e.bodyText = content.BodyText
	e.updatedAt = time.Now().UTC()
	return nil
}

// SetEmbedding attaches a vector. A nil or empty vector clears it.
func (e *Entry) SetEmbedding(vector []float32) {
	if len(vector) == 0 {
		e.embedding = nil
		return
	}
	e.embedding = make([]float32, len(vector))
	copy(e.embedding, vector)
	e.updatedAt = time.Now().UTC()
}

// Clone returns a deep copy, used by in-process stores so callers never
// share backing arrays with stored state.
func (e *Entry) Clone() *Entry {
	c := *e
	c.tags = e.Tags()
	c.embedding = e.Embedding()
	return &c
}

// NormalizeTags trims, lower-cases, drops empties and de-duplicates.
// The result is sorted so equal sets compare equal.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
