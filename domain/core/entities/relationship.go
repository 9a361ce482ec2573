package entities

import (
	"sort"
	"time"

	"chatarchive/domain/core/valueobjects"
	pkgerrors "chatarchive/pkg/errors"
)

// Relationship is one directed row of a symmetric relationship pair.
type Relationship struct {
	SourceID  string                        `json:"sourceId"`
	TargetID  string                        `json:"targetId"`
	Kind      valueobjects.RelationshipKind `json:"kind"`
	Score     valueobjects.Score            `json:"score"`
	CreatedAt time.Time                     `json:"createdAt"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}

// Mirror returns the reverse-direction row with the same score and kind.
func (r Relationship) Mirror() Relationship {
	r.SourceID, r.TargetID = r.TargetID, r.SourceID
	return r
}

// IsManual reports whether the row came from a user link
func (r Relationship) IsManual() bool {
	return r.Kind.IsManual()
}

// RelationshipPair is the unit every store writes and removes.
// Stores persist Forward and Reverse together or not at all.
type RelationshipPair struct {
	forward Relationship
}

// NewDetectedPair builds an automatic pair for a qualifying score.
func NewDetectedPair(sourceID, targetID string, score float64, at time.Time) (RelationshipPair, error) {
	s, err := valueobjects.NewScore(score)
	if err != nil {
		return RelationshipPair{}, pkgerrors.NewValidationError(err.Error())
	}
	return newPair(sourceID, targetID, valueobjects.KindAIDetected, s, at)
}

// NewManualPair builds a user link. Manual links always score 1.
func NewManualPair(sourceID, targetID string, at time.Time) (RelationshipPair, error) {
	return newPair(sourceID, targetID, valueobjects.KindManual, valueobjects.MaxScore, at)
}

func newPair(sourceID, targetID string, kind valueobjects.RelationshipKind, score valueobjects.Score, at time.Time) (RelationshipPair, error) {
	if sourceID == "" || targetID == "" {
		return RelationshipPair{}, pkgerrors.NewValidationError("relationship endpoints cannot be empty")
	}
	if sourceID == targetID {
		return RelationshipPair{}, pkgerrors.NewValidationError("an entry cannot relate to itself")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return RelationshipPair{forward: Relationship{
		SourceID:  sourceID,
		TargetID:  targetID,
		Kind:      kind,
		Score:     score,
		CreatedAt: at,
		UpdatedAt: at,
	}}, nil
}

// Forward returns the source→target row
func (p RelationshipPair) Forward() Relationship { return p.forward }

// Reverse returns the target→source row
func (p RelationshipPair) Reverse() Relationship { return p.forward.Mirror() }

// Rows returns both directional rows, forward first.
func (p RelationshipPair) Rows() [2]Relationship {
	return [2]Relationship{p.Forward(), p.Reverse()}
}

// Kind returns the kind shared by both rows
func (p RelationshipPair) Kind() valueobjects.RelationshipKind { return p.forward.Kind }

// Score returns the score shared by both rows
func (p RelationshipPair) Score() valueobjects.Score { return p.forward.Score }

// Key returns the unordered pair key, smaller id first.
func (p RelationshipPair) Key() (string, string) {
	return PairKey(p.forward.SourceID, p.forward.TargetID)
}

// PairKey orders two ids so a pair has one canonical identity.
func PairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ShouldReplace decides whether an incoming row may overwrite an existing one.
// Manual rows are only replaced by manual rows; automatic detection never
// downgrades a user link.
func ShouldReplace(existing *Relationship, incoming Relationship) bool {
	if existing == nil {
		return true
	}
	if existing.IsManual() && !incoming.IsManual() {
		return false
	}
	return true
}

// Merge applies incoming over existing, keeping the original creation time.
func Merge(existing *Relationship, incoming Relationship) Relationship {
	if existing != nil && !existing.CreatedAt.IsZero() {
		incoming.CreatedAt = existing.CreatedAt
	}
	return incoming
}

// SortRelated orders rows by score descending, newest edge first on ties,
// then by target id so results are stable.
func SortRelated(rows []Relationship) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].TargetID < rows[j].TargetID
	})
}
