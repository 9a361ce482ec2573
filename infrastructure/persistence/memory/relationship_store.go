package memory

import (
	"context"
	"sort"
	"sync"

	"chatarchive/domain/core/entities"
)

// RelationshipStore keeps relationship rows in process memory.
// Both rows of a pair change under one lock, so readers never observe a
// half-written pair.
type RelationshipStore struct {
	mu   sync.RWMutex
	rows map[string]map[string]entities.Relationship // source -> target -> row
}

// NewRelationshipStore creates an empty store
func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{rows: make(map[string]map[string]entities.Relationship)}
}

// Upsert writes both directions of a pair
func (s *RelationshipStore) Upsert(ctx context.Context, pair entities.RelationshipPair) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fwd := pair.Forward()
	existing := s.lookup(fwd.SourceID, fwd.TargetID)
	if !entities.ShouldReplace(existing, fwd) {
		return false, nil
	}

	for _, row := range pair.Rows() {
		merged := entities.Merge(s.lookup(row.SourceID, row.TargetID), row)
		s.put(merged)
	}
	return true, nil
}

// QueryRelated lists rows whose source is entryID
func (s *RelationshipStore) QueryRelated(ctx context.Context, entryID string, limit int) ([]entities.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := s.rows[entryID]
	out := make([]entities.Relationship, 0, len(targets))
	for _, row := range targets {
		out = append(out, row)
	}
	entities.SortRelated(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Remove deletes both rows between a and b
func (s *RelationshipStore) Remove(ctx context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drop(a, b)
	s.drop(b, a)
	return nil
}

// RemoveDetected deletes the pair if its stored kind is not manual
func (s *RelationshipStore) RemoveDetected(ctx context.Context, a, b string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.lookup(a, b)
	if row == nil || row.IsManual() {
		return false, nil
	}
	s.drop(a, b)
	s.drop(b, a)
	return true, nil
}

// QueryAllForVisualization returns one row per pair with score >= minScore
func (s *RelationshipStore) QueryAllForVisualization(ctx context.Context, minScore float64) ([]entities.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Relationship, 0)
	for source, targets := range s.rows {
		for target, row := range targets {
			if source > target {
				continue
			}
			if row.Score.Float64() >= minScore {
				out = append(out, row)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out, nil
}

// DeleteByEntry removes every pair touching entryID
func (s *RelationshipStore) DeleteByEntry(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for target := range s.rows[entryID] {
		s.drop(target, entryID)
	}
	delete(s.rows, entryID)
	return nil
}

func (s *RelationshipStore) lookup(source, target string) *entities.Relationship {
	row, ok := s.rows[source][target]
	if !ok {
		return nil
	}
	return &row
}

func (s *RelationshipStore) put(row entities.Relationship) {
	targets, ok := s.rows[row.SourceID]
	if !ok {
		targets = make(map[string]entities.Relationship)
		s.rows[row.SourceID] = targets
	}
	targets[row.TargetID] = row
}

func (s *RelationshipStore) drop(source, target string) {
	targets, ok := s.rows[source]
	if !ok {
		return
	}
	delete(targets, target)
	if len(targets) == 0 {
		delete(s.rows, source)
	}
}
