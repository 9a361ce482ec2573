package ports

import (
	"context"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/events"
)

// EntryRepository defines the interface for entry persistence
// The archive store is a collaborator; any engine that can list entries serves.
type EntryRepository interface {
	// GetByID retrieves an entry with full text; absent ids yield a NOT_FOUND AppError
	GetByID(ctx context.Context, id string) (*entities.Entry, error)

	// GetAllExcept retrieves every entry other than id
	GetAllExcept(ctx context.Context, id string) ([]*entities.Entry, error)

	// GetAll retrieves every entry
	GetAll(ctx context.Context) ([]*entities.Entry, error)

	// Save persists an entry (create or update)
	Save(ctx context.Context, entry *entities.Entry) error

	// Delete removes an entry; deleting an absent id is a no-op
	Delete(ctx context.Context, id string) error
}

// RelationshipStore persists symmetric relationship pairs.
// Operations on ids that do not exist return empty results, never errors.
type RelationshipStore interface {
	// Upsert writes both rows of a pair together. Automatic pairs never replace
	// a manual pair; written reports whether anything changed.
	Upsert(ctx context.Context, pair entities.RelationshipPair) (written bool, err error)

	// QueryRelated lists rows whose source is entryID, score descending,
	// newest first on ties. limit <= 0 means no limit.
	QueryRelated(ctx context.Context, entryID string, limit int) ([]entities.Relationship, error)

	// Remove deletes both rows between a and b
	Remove(ctx context.Context, a, b string) error

	// RemoveDetected deletes the pair only while it is still automatic. The
	// kind check and the delete are one atomic step, so a manual link made
	// after the caller read the pair survives; removed reports whether rows
	// were dropped.
	RemoveDetected(ctx context.Context, a, b string) (removed bool, err error)

	// QueryAllForVisualization returns one row per pair with score >= minScore
	QueryAllForVisualization(ctx context.Context, minScore float64) ([]entities.Relationship, error)

	// DeleteByEntry removes every pair touching entryID
	DeleteByEntry(ctx context.Context, entryID string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
