package neo4j

import (
	"context"
	"fmt"

	"chatarchive/domain/core/entities"
	pkgerrors "chatarchive/pkg/errors"

	"go.uber.org/zap"
)

// EntryRepository implements ports.EntryRepository on (:Entry) nodes
type EntryRepository struct {
	runner Runner
	logger *zap.Logger
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(runner Runner, logger *zap.Logger) *EntryRepository {
	return &EntryRepository{runner: runner, logger: logger}
}

// GetByID retrieves an entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*entities.Entry, error) {
	result, err := r.runner.Run(ctx, `MATCH (e:Entry {id: $id}) RETURN e`, map[string]any{"id": id})
	if err != nil {
		return nil, classifyError("get entry", err)
	}
	found := entriesFrom(result)
	if len(found) == 0 {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("entry %s", id))
	}
	return found[0], nil
}

// GetAllExcept retrieves every entry other than id
func (r *EntryRepository) GetAllExcept(ctx context.Context, id string) ([]*entities.Entry, error) {
	result, err := r.runner.Run(ctx, `
		MATCH (e:Entry)
		WHERE e.id <> $id
		RETURN e
		ORDER BY e.createdAt, e.id`, map[string]any{"id": id})
	if err != nil {
		return nil, classifyError("list entries", err)
	}
	return entriesFrom(result), nil
}

// GetAll retrieves every entry
func (r *EntryRepository) GetAll(ctx context.Context) ([]*entities.Entry, error) {
	result, err := r.runner.Run(ctx, `MATCH (e:Entry) RETURN e ORDER BY e.createdAt, e.id`, nil)
	if err != nil {
		return nil, classifyError("list entries", err)
	}
	return entriesFrom(result), nil
}

// Save creates or replaces the entry's properties
func (r *EntryRepository) Save(ctx context.Context, entry *entities.Entry) error {
	_, err := r.runner.Run(ctx, `
		MERGE (e:Entry {id: $id})
		SET e += $props`, map[string]any{"id": entry.ID(), "props": entryProps(entry)})
	if err != nil {
		return classifyError("save entry", err)
	}
	r.logger.Debug("Entry saved", zap.String("entryID", entry.ID()))
	return nil
}

// Delete removes the entry node together with its edges
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	_, err := r.runner.Run(ctx, `MATCH (e:Entry {id: $id}) DETACH DELETE e`, map[string]any{"id": id})
	return classifyError("delete entry", err)
}
