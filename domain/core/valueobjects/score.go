package valueobjects

import (
	"fmt"
	"math"
)

// Score is a relatedness value in [0,1].
type Score float64

const (
	// MinScore is the lowest valid score
	MinScore Score = 0
	// MaxScore is the highest valid score and the score of every manual link
	MaxScore Score = 1
)

// NewScore validates a raw value.
func NewScore(v float64) (Score, error) {
	if math.IsNaN(v) || v < float64(MinScore) || v > float64(MaxScore) {
		return 0, fmt.Errorf("score %v outside [0,1]", v)
	}
	return Score(v), nil
}

// ClampScore saturates v into [0,1]. NaN maps to 0.
func ClampScore(v float64) Score {
	switch {
	case math.IsNaN(v) || v < 0:
		return MinScore
	case v > 1:
		return MaxScore
	default:
		return Score(v)
	}
}

// Float64 returns the raw value
func (s Score) Float64() float64 {
	return float64(s)
}

// Exceeds reports whether the score is strictly above threshold.
func (s Score) Exceeds(threshold float64) bool {
	return float64(s) > threshold
}
