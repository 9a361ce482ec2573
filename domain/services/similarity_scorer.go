package services

import (
	"math"
	"strings"
	"sync/atomic"

	"chatarchive/domain/config"
	"chatarchive/domain/core/entities"
)

// Signals is the per-signal breakdown of one comparison. Each signal is
// already normalized to [0,1] and not yet weighted.
type Signals struct {
	Source     float64 `json:"source"`
	Tags       float64 `json:"tags"`
	Text       float64 `json:"text"`
	Vector     float64 `json:"vector"`
	VectorUsed bool    `json:"vectorUsed"`
	VectorErr  error   `json:"-"`
}

// Profile caches what the scorer derives from one entry so a detection pass
// extracts keywords once per entry instead of once per comparison.
type Profile struct {
	entry    *entities.Entry
	keywords map[string]struct{}
	tags     map[string]struct{}
}

// Entry returns the profiled entry
func (p *Profile) Entry() *entities.Entry { return p.entry }

// SimilarityScorer computes pairwise relatedness between entries.
// Score is pure, symmetric and deterministic for fixed inputs.
type SimilarityScorer struct {
	analyzer TextAnalyzer
	cfg      atomic.Pointer[config.ScoringConfig]
}

// NewSimilarityScorer creates a scorer. A nil analyzer uses the default one.
func NewSimilarityScorer(cfg config.ScoringConfig, analyzer TextAnalyzer) *SimilarityScorer {
	if analyzer == nil {
		analyzer = NewDefaultTextAnalyzer(cfg.MinKeywordRunes)
	}
	s := &SimilarityScorer{analyzer: analyzer}
	s.cfg.Store(&cfg)
	return s
}

// UpdateConfig swaps the weights used by subsequent calls.
func (s *SimilarityScorer) UpdateConfig(cfg config.ScoringConfig) {
	s.cfg.Store(&cfg)
}

// Config returns the active scoring configuration
func (s *SimilarityScorer) Config() config.ScoringConfig {
	return *s.cfg.Load()
}

// Threshold returns the exclusive persistence threshold
func (s *SimilarityScorer) Threshold() float64 {
	return s.cfg.Load().SimilarityThreshold
}

// Qualifies reports whether a score is high enough to persist an edge.
func (s *SimilarityScorer) Qualifies(score float64) bool {
	return score > s.Threshold()
}

// Prepare builds the reusable profile of an entry.
func (s *SimilarityScorer) Prepare(e *entities.Entry) *Profile {
	cfg := s.cfg.Load()
	text := e.Title() + " " + e.Summary() + " " + truncateRunes(e.BodyText(), cfg.BodyPrefixRunes)

	tags := make(map[string]struct{}, len(e.Tags()))
	for _, t := range e.Tags() {
		tags[t] = struct{}{}
	}

	return &Profile{
		entry:    e,
		keywords: s.analyzer.KeywordSet(text),
		tags:     tags,
	}
}

// Score returns the canonical lexical score used for persisted relationships.
func (s *SimilarityScorer) Score(a, b *entities.Entry) float64 {
	return s.ScoreProfiles(s.Prepare(a), s.Prepare(b))
}

// ScoreProfiles is Score over prepared profiles.
func (s *SimilarityScorer) ScoreProfiles(a, b *Profile) float64 {
	cfg := s.cfg.Load()
	sig := lexicalSignals(a, b)
	return clamp01(cfg.SourceWeight*sig.Source + cfg.TagWeight*sig.Tags + cfg.TextWeight*sig.Text)
}

// Explain returns the lexical signal breakdown plus the vector signal when
// both entries carry a usable embedding.
func (s *SimilarityScorer) Explain(a, b *Profile) Signals {
	sig := lexicalSignals(a, b)
	s.applyVector(&sig, a.entry, b.entry)
	return sig
}

// ScoreWithEmbedding ranks ephemeral suggestions. When both entries carry a
// valid embedding the cosine proximity dominates and lexical signals break
// ties; otherwise it degrades to the canonical lexical score.
func (s *SimilarityScorer) ScoreWithEmbedding(a, b *Profile) (float64, Signals) {
	cfg := s.cfg.Load()
	sig := s.Explain(a, b)
	if !sig.VectorUsed {
		return s.ScoreProfiles(a, b), sig
	}
	score := cfg.VectorWeight*sig.Vector +
		cfg.SuggestionTextWeight*sig.Text +
		cfg.SuggestionTagWeight*sig.Tags +
		cfg.SuggestionSourceWeight*sig.Source
	return clamp01(score), sig
}

func (s *SimilarityScorer) applyVector(sig *Signals, a, b *entities.Entry) {
	va, vb := a.Embedding(), b.Embedding()
	if va == nil || vb == nil {
		return
	}
	dim := s.cfg.Load().EmbeddingDimension
	if err := ValidateVector(va, dim); err != nil {
		sig.VectorErr = err
		return
	}
	if err := ValidateVector(vb, dim); err != nil {
		sig.VectorErr = err
		return
	}
	cos, err := CosineSimilarity(va, vb)
	if err != nil {
		sig.VectorErr = err
		return
	}
	sig.Vector = math.Max(0, cos)
	sig.VectorUsed = true
}

func lexicalSignals(a, b *Profile) Signals {
	var sig Signals
	if sa, sb := a.entry.SourceLabel(), b.entry.SourceLabel(); sa != "" && strings.EqualFold(sa, sb) {
		sig.Source = 1
	}
	sig.Tags = tagOverlap(a.tags, b.tags)
	sig.Text = Jaccard(a.keywords, b.keywords)
	return sig
}

// tagOverlap is shared / max(|a|,|b|), 0 when either set is empty.
func tagOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	largest := len(a)
	if len(b) > largest {
		largest = len(b)
	}
	return float64(shared) / float64(largest)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
