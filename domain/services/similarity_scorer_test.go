package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"chatarchive/domain/config"
	"chatarchive/domain/core/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScorer() *SimilarityScorer {
	return NewSimilarityScorer(config.DefaultDomainConfig().Scoring, nil)
}

func entry(id, source, title, summary string, tags []string, body string) *entities.Entry {
	return entities.ReconstructEntry(id, title, summary, tags, source, body, nil, time.Unix(0, 0), time.Unix(0, 0))
}

func TestScore_RelatedAndUnrelatedConversations(t *testing.T) {
	scorer := newScorer()

	t.Run("shared tag and keywords across sources qualifies", func(t *testing.T) {
		a := entry("a", "ChatGPT", "", "building dashboards", []string{"react", "frontend"}, "")
		b := entry("b", "Claude", "", "building dashboards with react", []string{"react", "backend"}, "")

		score := scorer.Score(a, b)

		// 0.3 * 1/2 + 0.5 * 2/3
		assert.InDelta(t, 0.15+0.5*2.0/3.0, score, 1e-9)
		assert.True(t, scorer.Qualifies(score))
	})

	t.Run("disjoint entries stay at or below source weight", func(t *testing.T) {
		a := entry("a", "ChatGPT", "Sourdough starter", "feeding schedule for bread", []string{"baking"}, "")
		b := entry("b", "Claude", "Kubernetes upgrade", "cluster migration notes", []string{"devops"}, "")

		score := scorer.Score(a, b)

		assert.LessOrEqual(t, score, 0.2)
		assert.False(t, scorer.Qualifies(score))
	})
}

func TestScore_SourceOnlyIsCapped(t *testing.T) {
	scorer := newScorer()
	a := entry("a", "Gemini", "", "", nil, "")
	b := entry("b", "Gemini", "", "", nil, "")

	assert.InDelta(t, 0.2, scorer.Score(a, b), 1e-12)
}

func TestScore_ThresholdIsExclusive(t *testing.T) {
	scorer := newScorer()
	assert.False(t, scorer.Qualifies(0.3))
	assert.True(t, scorer.Qualifies(0.3000001))
}

func TestScore_SaturatesAtOne(t *testing.T) {
	cfg := config.DefaultDomainConfig().Scoring
	cfg.TextWeight = 0.9
	scorer := NewSimilarityScorer(cfg, nil)

	a := entry("a", "Claude", "golang channels", "goroutines select", []string{"go"}, "")
	b := entry("b", "Claude", "golang channels", "goroutines select", []string{"go"}, "")

	assert.Equal(t, 1.0, scorer.Score(a, b))
}

func TestScore_BodyPrefixOnly(t *testing.T) {
	scorer := newScorer()
	padding := strings.Repeat("x", 1000)
	a := entry("a", "", "alpha", "", nil, padding+" zeppelin")
	b := entry("b", "", "beta", "", nil, "zeppelin")

	// the shared keyword sits beyond the first 1000 runes of a's body
	assert.Equal(t, 0.0, scorer.Score(a, b))
}

func TestScore_PropertiesOverRandomEntries(t *testing.T) {
	scorer := newScorer()
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"react", "golang", "dashboards", "kubernetes", "python", "prompt", "embedding", "vector", "graph", "sourdough"}
	sources := []string{"ChatGPT", "Claude", "Gemini", ""}

	pick := func(n int) []string {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, vocab[rng.Intn(len(vocab))])
		}
		return out
	}

	entries := make([]*entities.Entry, 0, 30)
	for i := 0; i < 30; i++ {
		e := entry(
			fmt.Sprintf("e%d", i),
			sources[rng.Intn(len(sources))],
			strings.Join(pick(2), " "),
			strings.Join(pick(rng.Intn(6)), " "),
			pick(rng.Intn(4)),
			strings.Join(pick(rng.Intn(20)), ". "),
		)
		if rng.Intn(2) == 0 {
			e.SetEmbedding([]float32{rng.Float32() - 0.5, rng.Float32() - 0.5, rng.Float32()})
		}
		entries = append(entries, e)
	}

	for _, a := range entries {
		for _, b := range entries {
			ab := scorer.Score(a, b)
			ba := scorer.Score(b, a)
			require.Equal(t, ab, ba, "score(%s,%s) must be symmetric", a.ID(), b.ID())
			require.GreaterOrEqual(t, ab, 0.0)
			require.LessOrEqual(t, ab, 1.0)

			pa, pb := scorer.Prepare(a), scorer.Prepare(b)
			sab, _ := scorer.ScoreWithEmbedding(pa, pb)
			sba, _ := scorer.ScoreWithEmbedding(pb, pa)
			require.Equal(t, sab, sba)
			require.False(t, math.IsNaN(sab))
			require.GreaterOrEqual(t, sab, 0.0)
			require.LessOrEqual(t, sab, 1.0)
		}
	}
}

func TestScoreWithEmbedding(t *testing.T) {
	scorer := newScorer()

	t.Run("uses cosine when both vectors are valid", func(t *testing.T) {
		a := entry("a", "Claude", "", "", nil, "")
		b := entry("b", "ChatGPT", "", "", nil, "")
		a.SetEmbedding([]float32{1, 0, 0})
		b.SetEmbedding([]float32{1, 0, 0})

		score, sig := scorer.ScoreWithEmbedding(scorer.Prepare(a), scorer.Prepare(b))

		assert.True(t, sig.VectorUsed)
		assert.InDelta(t, 1.0, sig.Vector, 1e-9)
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("missing vector degrades to lexical score", func(t *testing.T) {
		a := entry("a", "Claude", "", "building dashboards", []string{"react"}, "")
		b := entry("b", "Claude", "", "building dashboards", []string{"react"}, "")
		a.SetEmbedding([]float32{0.3, 0.4})

		pa, pb := scorer.Prepare(a), scorer.Prepare(b)
		score, sig := scorer.ScoreWithEmbedding(pa, pb)

		assert.False(t, sig.VectorUsed)
		assert.NoError(t, sig.VectorErr)
		assert.Equal(t, scorer.ScoreProfiles(pa, pb), score)
	})

	t.Run("dimension mismatch is skipped not thrown", func(t *testing.T) {
		a := entry("a", "Claude", "", "", nil, "")
		b := entry("b", "Claude", "", "", nil, "")
		a.SetEmbedding([]float32{1, 0, 0})
		b.SetEmbedding([]float32{1, 0})

		score, sig := scorer.ScoreWithEmbedding(scorer.Prepare(a), scorer.Prepare(b))

		assert.False(t, sig.VectorUsed)
		assert.ErrorIs(t, sig.VectorErr, ErrMalformedVector)
		assert.InDelta(t, 0.2, score, 1e-12)
	})

	t.Run("configured dimension is enforced", func(t *testing.T) {
		cfg := config.DefaultDomainConfig().Scoring
		cfg.EmbeddingDimension = 4
		strict := NewSimilarityScorer(cfg, nil)

		a := entry("a", "", "", "", nil, "")
		b := entry("b", "", "", "", nil, "")
		a.SetEmbedding([]float32{1, 0, 0})
		b.SetEmbedding([]float32{1, 0, 0})

		_, sig := strict.ScoreWithEmbedding(strict.Prepare(a), strict.Prepare(b))
		assert.False(t, sig.VectorUsed)
		assert.ErrorIs(t, sig.VectorErr, ErrMalformedVector)
	})

	t.Run("opposite vectors contribute nothing", func(t *testing.T) {
		a := entry("a", "", "", "", nil, "")
		b := entry("b", "", "", "", nil, "")
		a.SetEmbedding([]float32{1, 0})
		b.SetEmbedding([]float32{-1, 0})

		score, sig := scorer.ScoreWithEmbedding(scorer.Prepare(a), scorer.Prepare(b))
		assert.True(t, sig.VectorUsed)
		assert.Equal(t, 0.0, score)
	})
}

func TestUpdateConfig(t *testing.T) {
	scorer := newScorer()
	cfg := scorer.Config()
	cfg.SimilarityThreshold = 0.5
	scorer.UpdateConfig(cfg)

	assert.Equal(t, 0.5, scorer.Threshold())
	assert.False(t, scorer.Qualifies(0.45))
}
