package services

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedVector marks an embedding that cannot take part in scoring.
var ErrMalformedVector = errors.New("malformed embedding vector")

// ValidateVector checks a single vector. A positive dimension also enforces
// the configured embedding size.
func ValidateVector(v []float32, dimension int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformedVector)
	}
	if dimension > 0 && len(v) != dimension {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrMalformedVector, len(v), dimension)
	}
	var norm float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component at %d", ErrMalformedVector, i)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero norm", ErrMalformedVector)
	}
	return nil
}

// CosineSimilarity returns the cosine of two vectors in [-1,1].
// Both vectors must be valid and of equal length.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d vs %d", ErrMalformedVector, len(a), len(b))
	}
	if err := ValidateVector(a, 0); err != nil {
		return 0, err
	}
	if err := ValidateVector(b, 0); err != nil {
		return 0, err
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, cos)), nil
}
