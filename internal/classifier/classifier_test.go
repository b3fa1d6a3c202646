package classifier

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/models"
	"spam-detector/internal/scorer"
	"spam-detector/internal/sequence"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		p          float64
		label      models.Label
		confidence float64
	}{
		{"clear spam", 0.9, models.Spam, 0.9},
		{"clear ham", 0.1, models.Ham, 0.9},
		{"boundary is ham", 0.5, models.Ham, 0.5},
		{"just above boundary", 0.5000001, models.Spam, 0.5000001},
		{"certain spam", 1, models.Spam, 1},
		{"certain ham", 0, models.Ham, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, confidence, err := Decide(tt.p, DefaultThreshold)
			require.NoError(t, err)
			require.Equal(t, tt.label, label)
			require.InDelta(t, tt.confidence, confidence, 1e-12)
			require.GreaterOrEqual(t, confidence, 0.5)
		})
	}
}

func TestDecide_OutOfRange(t *testing.T) {
	for _, p := range []float64{-0.1, 1.2, math.NaN(), math.Inf(1)} {
		_, _, err := Decide(p, DefaultThreshold)
		require.ErrorIs(t, err, apperrors.ErrScoreOutOfRange)
	}
}

func TestDecide_CustomThreshold(t *testing.T) {
	label, confidence, err := Decide(0.7, 0.8)
	require.NoError(t, err)
	require.Equal(t, models.Ham, label)
	require.InDelta(t, 0.3, confidence, 1e-12)
}

func TestClassify(t *testing.T) {
	seq := sequence.Encoded{1, 2, 0}

	label, confidence, err := Classify(context.Background(), seq, scorer.Constant(0.8), DefaultThreshold)
	require.NoError(t, err)
	require.Equal(t, models.Spam, label)
	require.InDelta(t, 0.8, confidence, 1e-12)

	boom := errors.New("boom")
	failing := scorer.Func(func(context.Context, sequence.Encoded) (float64, error) { return 0, boom })
	_, _, err = Classify(context.Background(), seq, failing, DefaultThreshold)
	require.ErrorIs(t, err, boom)
}

func TestValidThreshold(t *testing.T) {
	require.True(t, ValidThreshold(DefaultThreshold))
	require.False(t, ValidThreshold(0))
	require.False(t, ValidThreshold(1))
}
