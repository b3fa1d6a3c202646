// Package classifier turns a spam probability into a label and a confidence in that label.
package classifier

import (
	"context"
	"fmt"
	"math"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/models"
	"spam-detector/internal/scorer"
	"spam-detector/internal/sequence"
)

// DefaultThreshold is the decision boundary the model was evaluated with.
const DefaultThreshold = 0.5

// ValidThreshold reports whether t can be used as a decision boundary.
func ValidThreshold(t float64) bool {
	return t > 0 && t < 1
}

// Decide labels p. A probability equal to the threshold is Ham.
func Decide(p, threshold float64) (models.Label, float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return "", 0, fmt.Errorf("%w: %v", apperrors.ErrScoreOutOfRange, p)
	}
	if p > threshold {
		return models.Spam, p, nil
	}
	return models.Ham, 1 - p, nil
}

// Classify scores seq and labels the result.
func Classify(ctx context.Context, seq sequence.Encoded, s scorer.Scorer, threshold float64) (models.Label, float64, error) {
	p, err := s.Score(ctx, seq)
	if err != nil {
		return "", 0, fmt.Errorf("failed to score sequence: %w", err)
	}
	return Decide(p, threshold)
}
