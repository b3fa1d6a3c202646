//go:generate go run go.uber.org/mock/mockgen -source=scorer.go -destination=../../mocks/mock_scorer.go -package=mocks

// Package scorer provides the probability-of-spam functions the classifier consumes.
package scorer

import (
	"context"

	"spam-detector/internal/sequence"
)

const (
	BackendLSTM      = "lstm"
	BackendTFServing = "tfserving"
	BackendFunc      = "func"
)

// Scorer maps an encoded sequence to a spam probability in [0,1].
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, seq sequence.Encoded) (float64, error)
	Health(ctx context.Context) error
	Info() Info
}

// Info describes the loaded model.
type Info struct {
	Backend   string
	ModelName string
}

// Func adapts a plain function to Scorer.
type Func func(ctx context.Context, seq sequence.Encoded) (float64, error)

func (f Func) Score(ctx context.Context, seq sequence.Encoded) (float64, error) {
	return f(ctx, seq)
}

func (f Func) Health(context.Context) error { return nil }

func (f Func) Info() Info { return Info{Backend: BackendFunc} }

// Constant always returns p. Handy for smoke runs without a model.
func Constant(p float64) Func {
	return func(context.Context, sequence.Encoded) (float64, error) { return p, nil }
}
