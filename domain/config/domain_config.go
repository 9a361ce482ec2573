package config

import (
	"fmt"
	"time"
)

// DomainConfig holds the tunable business rules of the relationship engine.
// The weights and thresholds are heuristics, not laws; every value here can
// be overridden from the tuning file.
type DomainConfig struct {
	Scoring   ScoringConfig   `yaml:"scoring"`
	Detection DetectionConfig `yaml:"detection"`
	Layout    LayoutConfig    `yaml:"layout"`
	Render    RenderConfig    `yaml:"render"`
}

// ScoringConfig tunes the similarity scorer.
type ScoringConfig struct {
	SourceWeight        float64 `yaml:"sourceWeight"`
	TagWeight           float64 `yaml:"tagWeight"`
	TextWeight          float64 `yaml:"textWeight"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	BodyPrefixRunes     int     `yaml:"bodyPrefixRunes"`
	MinKeywordRunes     int     `yaml:"minKeywordRunes"`

	// Embedding-enhanced suggestions only; never used for persisted edges.
	VectorWeight           float64 `yaml:"vectorWeight"`
	SuggestionTextWeight   float64 `yaml:"suggestionTextWeight"`
	SuggestionTagWeight    float64 `yaml:"suggestionTagWeight"`
	SuggestionSourceWeight float64 `yaml:"suggestionSourceWeight"`
	EmbeddingDimension     int     `yaml:"embeddingDimension"`
}

// DetectionConfig tunes the detector.
type DetectionConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	LockDuration time.Duration `yaml:"lockDuration"`
	RemoveStale  bool          `yaml:"removeStale"`
	DefaultLimit int           `yaml:"defaultLimit"`
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	Repulsion       float64 `yaml:"repulsion"`
	SpringLength    float64 `yaml:"springLength"`
	SpringStiffness float64 `yaml:"springStiffness"`
	Damping         float64 `yaml:"damping"`
	ForceScale      float64 `yaml:"forceScale"`
	DistanceFloor   float64 `yaml:"distanceFloor"`
	MaxSpeed        float64 `yaml:"maxSpeed"`
	Gravity         float64 `yaml:"gravity"`
	MaxIterations   int     `yaml:"maxIterations"`
}

// RenderConfig tunes the view.
type RenderConfig struct {
	MinZoom       float64       `yaml:"minZoom"`
	MaxZoom       float64       `yaml:"maxZoom"`
	LabelRunes    int           `yaml:"labelRunes"`
	FrameEvery    int           `yaml:"frameEvery"`
	FrameInterval time.Duration `yaml:"frameInterval"`
	DefaultWidth  float64       `yaml:"defaultWidth"`
	DefaultHeight float64       `yaml:"defaultHeight"`
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		Scoring: ScoringConfig{
			SourceWeight:        0.2,
			TagWeight:           0.3,
			TextWeight:          0.5,
			SimilarityThreshold: 0.3,
			BodyPrefixRunes:     1000,
			MinKeywordRunes:     4,

			VectorWeight:           0.5,
			SuggestionTextWeight:   0.25,
			SuggestionTagWeight:    0.15,
			SuggestionSourceWeight: 0.1,
		},
		Detection: DetectionConfig{
			Timeout:      30 * time.Second,
			LockDuration: 2 * time.Minute,
			RemoveStale:  true,
			DefaultLimit: 10,
		},
		Layout: LayoutConfig{
			Repulsion:       100000,
			SpringLength:    150,
			SpringStiffness: 1.0,
			Damping:         0.8,
			ForceScale:      0.01,
			DistanceFloor:   1,
			MaxSpeed:        50,
			Gravity:         0.02,
			MaxIterations:   300,
		},
		Render: RenderConfig{
			MinZoom:       0.3,
			MaxZoom:       3,
			LabelRunes:    24,
			FrameEvery:    5,
			FrameInterval: 33 * time.Millisecond,
			DefaultWidth:  1200,
			DefaultHeight: 800,
		},
	}
}

// LoadDomainConfig returns the defaults for an environment.
func LoadDomainConfig(environment string) *DomainConfig {
	cfg := DefaultDomainConfig()
	if environment == "production" {
		cfg.Detection.Timeout = 25 * time.Second
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	s := c.Scoring
	if s.SourceWeight < 0 || s.TagWeight < 0 || s.TextWeight < 0 || s.VectorWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarity threshold must be in [0,1), got %v", s.SimilarityThreshold)
	}
	if s.BodyPrefixRunes < 0 {
		return fmt.Errorf("body prefix must be non-negative")
	}
	if c.Detection.Timeout <= 0 {
		return fmt.Errorf("detection timeout must be positive")
	}
	l := c.Layout
	if l.MaxIterations < 0 {
		return fmt.Errorf("layout iteration ceiling must be non-negative")
	}
	if l.Damping < 0 || l.Damping >= 1 {
		return fmt.Errorf("layout damping must be in [0,1), got %v", l.Damping)
	}
	if l.DistanceFloor <= 0 {
		return fmt.Errorf("layout distance floor must be positive")
	}
	if c.Render.MinZoom <= 0 || c.Render.MinZoom > c.Render.MaxZoom {
		return fmt.Errorf("invalid zoom range [%v, %v]", c.Render.MinZoom, c.Render.MaxZoom)
	}
	return nil
}
