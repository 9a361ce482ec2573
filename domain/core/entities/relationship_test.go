package entities

import (
	"testing"
	"time"

	"chatarchive/domain/core/valueobjects"
	pkgerrors "chatarchive/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetectedPair(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	pair, err := NewDetectedPair("a", "b", 0.42, at)
	require.NoError(t, err)

	fwd, rev := pair.Forward(), pair.Reverse()
	assert.Equal(t, "a", fwd.SourceID)
	assert.Equal(t, "b", fwd.TargetID)
	assert.Equal(t, "b", rev.SourceID)
	assert.Equal(t, "a", rev.TargetID)
	assert.Equal(t, fwd.Score, rev.Score)
	assert.Equal(t, valueobjects.KindAIDetected, rev.Kind)
	assert.Equal(t, at, rev.CreatedAt)
}

func TestNewPairRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		score  float64
	}{
		{"self relationship", "a", "a", 0.5},
		{"empty source", "", "b", 0.5},
		{"empty target", "a", "", 0.5},
		{"score above one", "a", "b", 1.2},
		{"negative score", "a", "b", -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetectedPair(tt.source, tt.target, tt.score, time.Now())
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestNewManualPairScoresOne(t *testing.T) {
	pair, err := NewManualPair("x", "y", time.Now())
	require.NoError(t, err)

	assert.Equal(t, valueobjects.MaxScore, pair.Score())
	assert.True(t, pair.Forward().IsManual())
	assert.True(t, pair.Reverse().IsManual())
}

func TestShouldReplace(t *testing.T) {
	manual := Relationship{SourceID: "a", TargetID: "b", Kind: valueobjects.KindManual, Score: 1}
	auto := Relationship{SourceID: "a", TargetID: "b", Kind: valueobjects.KindAIDetected, Score: 0.6}

	assert.True(t, ShouldReplace(nil, auto))
	assert.True(t, ShouldReplace(&auto, manual))
	assert.True(t, ShouldReplace(&auto, auto))
	assert.True(t, ShouldReplace(&manual, manual))
	assert.False(t, ShouldReplace(&manual, auto))
}

func TestMergeKeepsCreatedAt(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	existing := Relationship{SourceID: "a", TargetID: "b", CreatedAt: first, UpdatedAt: first}
	incoming := Relationship{SourceID: "a", TargetID: "b", Score: 0.7, CreatedAt: later, UpdatedAt: later}

	merged := Merge(&existing, incoming)

	assert.Equal(t, first, merged.CreatedAt)
	assert.Equal(t, later, merged.UpdatedAt)
	assert.Equal(t, valueobjects.Score(0.7), merged.Score)
}

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a1, b1 := PairKey("beta", "alpha")
	a2, b2 := PairKey("alpha", "beta")
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, "alpha", a1)
}
