package neo4j

import (
	"context"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// upsertPair writes both directions in one statement. An automatic write that
// meets a manual edge leaves both edges untouched. No row comes back when
// either entry is missing.
const upsertPair = `
MATCH (a:Entry {id: $source}), (b:Entry {id: $target})
OPTIONAL MATCH (a)-[existing:RELATED]->(b)
WITH a, b, ($manual OR existing IS NULL OR existing.kind <> $manualKind) AS allowed
FOREACH (_ IN CASE WHEN allowed THEN [1] ELSE [] END |
  MERGE (a)-[f:RELATED]->(b)
  ON CREATE SET f.createdAt = $now
  SET f.kind = $kind, f.score = $score, f.updatedAt = $now
  MERGE (b)-[r:RELATED]->(a)
  ON CREATE SET r.createdAt = $now
  SET r.kind = $kind, r.score = $score, r.updatedAt = $now
)
RETURN allowed AS written`

// removeDetected drops both edges unless either one is manual.
const removeDetected = `
MATCH (a:Entry {id: $a})-[r:RELATED]-(b:Entry {id: $b})
WITH collect(r) AS edges
WHERE size(edges) > 0 AND none(e IN edges WHERE e.kind = $manualKind)
FOREACH (e IN edges | DELETE e)
RETURN size(edges) AS removed`

const relationshipColumns = `
RETURN a.id AS source, b.id AS target, r.kind AS kind, r.score AS score,
       r.createdAt AS createdAt, r.updatedAt AS updatedAt`

// RelationshipStore implements ports.RelationshipStore on [:RELATED] edges.
// Pairs whose entries are not stored cannot be written; Upsert reports them
// as not found.
type RelationshipStore struct {
	runner Runner
	logger *zap.Logger
}

// NewRelationshipStore creates a new RelationshipStore
func NewRelationshipStore(runner Runner, logger *zap.Logger) *RelationshipStore {
	return &RelationshipStore{runner: runner, logger: logger}
}

// Upsert writes both edges of a pair in one transaction
func (s *RelationshipStore) Upsert(ctx context.Context, pair entities.RelationshipPair) (bool, error) {
	fwd := pair.Forward()
	result, err := s.runner.Run(ctx, upsertPair, map[string]any{
		"source":     fwd.SourceID,
		"target":     fwd.TargetID,
		"manual":     fwd.IsManual(),
		"manualKind": valueobjects.KindManual.String(),
		"kind":       fwd.Kind.String(),
		"score":      fwd.Score.Float64(),
		"now":        formatTime(fwd.UpdatedAt),
	})
	if err != nil {
		return false, classifyError("upsert relationship", err)
	}

	if len(result.Records) == 0 {
		return false, pkgerrors.NewNotFoundError("entry").WithDetails(map[string]interface{}{
			"sourceID": fwd.SourceID,
			"targetID": fwd.TargetID,
		})
	}
	written := false
	if v, ok := result.Records[0].Get("written"); ok {
		written, _ = v.(bool)
	}
	if !written {
		s.logger.Debug("Kept manual relationship",
			zap.String("sourceID", fwd.SourceID),
			zap.String("targetID", fwd.TargetID),
		)
	}
	return written, nil
}

// QueryRelated lists edges leaving entryID
func (s *RelationshipStore) QueryRelated(ctx context.Context, entryID string, limit int) ([]entities.Relationship, error) {
	result, err := s.runner.Run(ctx, `MATCH (a:Entry {id: $id})-[r:RELATED]->(b:Entry)`+relationshipColumns,
		map[string]any{"id": entryID})
	if err != nil {
		return nil, classifyError("query relationships", err)
	}

	rows := s.decode(result.Records)
	entities.SortRelated(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Remove deletes both edges between a and b
func (s *RelationshipStore) Remove(ctx context.Context, a, b string) error {
	_, err := s.runner.Run(ctx, `
		MATCH (:Entry {id: $a})-[r:RELATED]-(:Entry {id: $b})
		DELETE r`, map[string]any{"a": a, "b": b})
	return classifyError("remove relationship", err)
}

// RemoveDetected deletes both edges between a and b while neither is manual
func (s *RelationshipStore) RemoveDetected(ctx context.Context, a, b string) (bool, error) {
	result, err := s.runner.Run(ctx, removeDetected, map[string]any{
		"a":          a,
		"b":          b,
		"manualKind": valueobjects.KindManual.String(),
	})
	if err != nil {
		return false, classifyError("remove detected relationship", err)
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	removed, _ := result.Records[0].Get("removed")
	n, _ := removed.(int64)
	return n > 0, nil
}

// QueryAllForVisualization returns the lexically ordered direction of each pair
func (s *RelationshipStore) QueryAllForVisualization(ctx context.Context, minScore float64) ([]entities.Relationship, error) {
	result, err := s.runner.Run(ctx, `
		MATCH (a:Entry)-[r:RELATED]->(b:Entry)
		WHERE a.id < b.id AND r.score >= $minScore`+relationshipColumns+`
		ORDER BY source, target`, map[string]any{"minScore": minScore})
	if err != nil {
		return nil, classifyError("scan relationships", err)
	}
	return s.decode(result.Records), nil
}

// DeleteByEntry removes every edge touching entryID
func (s *RelationshipStore) DeleteByEntry(ctx context.Context, entryID string) error {
	_, err := s.runner.Run(ctx, `
		MATCH (:Entry {id: $id})-[r:RELATED]-()
		DELETE r`, map[string]any{"id": entryID})
	return classifyError("delete relationships", err)
}

func (s *RelationshipStore) decode(records []*neo4j.Record) []entities.Relationship {
	out := make([]entities.Relationship, 0, len(records))
	for _, rec := range records {
		row, err := relationshipFrom(rec)
		if err != nil {
			s.logger.Warn("Skipping relationship with unknown kind", zap.Error(err))
			continue
		}
		out = append(out, row)
	}
	return out
}
