package ports

import (
	"context"
	"time"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Summary is what a summarizer derives from a transcript.
type Summary struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// Summarizer proposes a title and tags for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (Summary, error)
}

// DetectionLocker keeps at most one detection in flight per entry.
// Acquire fails with a CONFLICT AppError when the entry is already locked.
type DetectionLocker interface {
	Acquire(ctx context.Context, entryID string, ttl time.Duration) (release func(), err error)
}

// Tracer wraps a unit of work in a trace span or segment.
type Tracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
}

// DetectionMetrics records detection outcomes.
type DetectionMetrics interface {
	RecordDetection(ctx context.Context, compared, linked, removed int, took time.Duration, err error)
}
