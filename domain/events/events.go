package events

import "time"

// DomainEvent is something that already happened in the archive.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeEntryImported         = "entry.imported"
	TypeEntryDeleted          = "entry.deleted"
	TypeRelationshipsDetected = "relationships.detected"
	TypeRelationshipLinked    = "relationship.linked"
	TypeRelationshipUnlinked  = "relationship.unlinked"
)

// EntryImported is raised after a new entry is stored. The detect-entry
// function listens for it.
type EntryImported struct {
	BaseEvent
	EntryID     string `json:"entry_id"`
	SourceLabel string `json:"source_label"`
	Embedded    bool   `json:"embedded"`
}

// NewEntryImported creates an EntryImported event
func NewEntryImported(entryID, sourceLabel string, embedded bool, at time.Time) EntryImported {
	return EntryImported{
		BaseEvent:   BaseEvent{AggregateID: entryID, EventType: TypeEntryImported, Timestamp: at, Version: 1},
		EntryID:     entryID,
		SourceLabel: sourceLabel,
		Embedded:    embedded,
	}
}

// EntryDeleted is raised after an entry and its relationships are removed.
type EntryDeleted struct {
	BaseEvent
	EntryID string `json:"entry_id"`
}

// NewEntryDeleted creates an EntryDeleted event
func NewEntryDeleted(entryID string, at time.Time) EntryDeleted {
	return EntryDeleted{
		BaseEvent: BaseEvent{AggregateID: entryID, EventType: TypeEntryDeleted, Timestamp: at, Version: 1},
		EntryID:   entryID,
	}
}

// RelationshipsDetected summarizes one detection pass.
type RelationshipsDetected struct {
	BaseEvent
	EntryID  string        `json:"entry_id"`
	Compared int           `json:"compared"`
	Linked   int           `json:"linked"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration_ns"`
}

// NewRelationshipsDetected creates a RelationshipsDetected event
func NewRelationshipsDetected(entryID string, compared, linked, removed int, took time.Duration, at time.Time) RelationshipsDetected {
	return RelationshipsDetected{
		BaseEvent: BaseEvent{AggregateID: entryID, EventType: TypeRelationshipsDetected, Timestamp: at, Version: 1},
		EntryID:   entryID,
		Compared:  compared,
		Linked:    linked,
		Removed:   removed,
		Duration:  took,
	}
}

// RelationshipLinked is raised when a user links two entries by hand.
type RelationshipLinked struct {
	BaseEvent
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// NewRelationshipLinked creates a RelationshipLinked event
func NewRelationshipLinked(sourceID, targetID string, at time.Time) RelationshipLinked {
	return RelationshipLinked{
		BaseEvent: BaseEvent{AggregateID: sourceID, EventType: TypeRelationshipLinked, Timestamp: at, Version: 1},
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}

// RelationshipUnlinked is raised when a pair is explicitly removed.
type RelationshipUnlinked struct {
	BaseEvent
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// NewRelationshipUnlinked creates a RelationshipUnlinked event
func NewRelationshipUnlinked(sourceID, targetID string, at time.Time) RelationshipUnlinked {
	return RelationshipUnlinked{
		BaseEvent: BaseEvent{AggregateID: sourceID, EventType: TypeRelationshipUnlinked, Timestamp: at, Version: 1},
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}
