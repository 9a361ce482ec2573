package memory

import (
	"context"
	"sort"
	"sync"

	"chatarchive/domain/core/entities"
	pkgerrors "chatarchive/pkg/errors"
)

// EntryRepository keeps entries in process memory. It backs the CLI, local
// development and tests.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*entities.Entry
}

// NewEntryRepository creates an empty repository
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{entries: make(map[string]*entities.Entry)}
}

// GetByID retrieves an entry by its ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*entities.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("entry " + id)
	}
	return e.Clone(), nil
}

// GetAllExcept retrieves every entry other than id
func (r *EntryRepository) GetAllExcept(ctx context.Context, id string) ([]*entities.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Entry, 0, len(r.entries))
	for key, e := range r.entries {
		if key == id {
			continue
		}
		out = append(out, e.Clone())
	}
	sortEntries(out)
	return out, nil
}

// GetAll retrieves every entry
func (r *EntryRepository) GetAll(ctx context.Context) ([]*entities.Entry, error) {
	return r.GetAllExcept(ctx, "")
}

// Save persists an entry
func (r *EntryRepository) Save(ctx context.Context, entry *entities.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.ID()] = entry.Clone()
	return nil
}

// Delete removes an entry
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

// Count returns the number of stored entries
func (r *EntryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func sortEntries(entries []*entities.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt().Equal(entries[j].CreatedAt()) {
			return entries[i].CreatedAt().Before(entries[j].CreatedAt())
		}
		return entries[i].ID() < entries[j].ID()
	})
}
