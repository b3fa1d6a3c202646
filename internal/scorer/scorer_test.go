package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/artifact"
	"spam-detector/internal/sequence"
)

func zeros(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// zeroNetwork produces sigmoid(outBias) for every input.
func zeroNetwork(vocabSize, maxLen int, outBias float64) *WeightsFile {
	const dim, units, hidden = 4, 3, 2
	return &WeightsFile{
		Format:      weightsFormat,
		Name:        "zero",
		InputLength: maxLen,
		Embedding:   zeros(vocabSize+1, dim),
		LSTM: LSTMWeights{
			Units:           units,
			Kernel:          zeros(dim, 4*units),
			RecurrentKernel: zeros(units, 4*units),
			Bias:            make([]float64, 4*units),
		},
		Dense: []DenseLayer{
			{Kernel: zeros(units, hidden), Bias: make([]float64, hidden), Activation: "relu"},
			{Kernel: zeros(hidden, 1), Bias: []float64{outBias}, Activation: "sigmoid"},
		},
	}
}

func TestLSTM_ZeroNetwork(t *testing.T) {
	w := zeroNetwork(5, 10, math.Log(3))
	m, err := NewLSTM(w, 5, 10)
	require.NoError(t, err)

	p, err := m.Score(context.Background(), sequence.Encoded{1, 2, 3, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 0.75, p, 1e-9)
	require.Equal(t, Info{Backend: BackendLSTM, ModelName: "zero"}, m.Info())
}

func TestLSTM_SingleStep(t *testing.T) {
	w := &WeightsFile{
		InputLength: 1,
		Embedding:   [][]float64{{0}, {1}},
		LSTM: LSTMWeights{
			Units:           1,
			Kernel:          [][]float64{{1, 1, 1, 1}},
			RecurrentKernel: [][]float64{{0, 0, 0, 0}},
			Bias:            []float64{0, 0, 0, 0},
		},
		Dense: []DenseLayer{
			{Kernel: [][]float64{{1}}, Bias: []float64{0}, Activation: "sigmoid"},
		},
	}
	m, err := NewLSTM(w, 1, 1)
	require.NoError(t, err)

	s1 := sigmoid(1)
	c := s1 * math.Tanh(1)
	h := s1 * math.Tanh(c)

	p, err := m.Score(context.Background(), sequence.Encoded{1})
	require.NoError(t, err)
	require.InDelta(t, sigmoid(h), p, 1e-12)

	// Padding id 0 has a zero embedding: every gate is sigmoid(0) and the candidate is 0.
	p, err = m.Score(context.Background(), sequence.Encoded{0})
	require.NoError(t, err)
	require.InDelta(t, 0.5, p, 1e-12)
}

func TestLSTM_ScoreErrors(t *testing.T) {
	m, err := NewLSTM(zeroNetwork(2, 3, 0), 2, 3)
	require.NoError(t, err)

	_, err = m.Score(context.Background(), sequence.Encoded{1, 2})
	require.Error(t, err)

	_, err = m.Score(context.Background(), sequence.Encoded{1, 2, 7})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Score(ctx, sequence.Encoded{0, 0, 0})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLSTM_ShapeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *WeightsFile)
	}{
		{"embedding rows", func(w *WeightsFile) { w.Embedding = w.Embedding[:len(w.Embedding)-1] }},
		{"ragged embedding", func(w *WeightsFile) { w.Embedding[2] = []float64{1} }},
		{"input length", func(w *WeightsFile) { w.InputLength = 50 }},
		{"units", func(w *WeightsFile) { w.LSTM.Units = 0 }},
		{"kernel", func(w *WeightsFile) { w.LSTM.Kernel = zeros(4, 3) }},
		{"recurrent kernel", func(w *WeightsFile) { w.LSTM.RecurrentKernel = zeros(2, 12) }},
		{"bias", func(w *WeightsFile) { w.LSTM.Bias = []float64{0} }},
		{"activation", func(w *WeightsFile) { w.LSTM.RecurrentActivation = "swish" }},
		{"dense chain", func(w *WeightsFile) { w.Dense[1].Kernel = zeros(3, 1) }},
		{"output width", func(w *WeightsFile) {
			w.Dense[1].Kernel = zeros(2, 2)
			w.Dense[1].Bias = []float64{0, 0}
		}},
		{"output activation", func(w *WeightsFile) { w.Dense[1].Activation = "relu" }},
		{"no dense", func(w *WeightsFile) { w.Dense = nil }},
		{"format", func(w *WeightsFile) { w.Format = "onnx" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := zeroNetwork(5, 10, 0)
			tt.mutate(w)
			_, err := NewLSTM(w, 5, 10)
			require.Error(t, err)
		})
	}
}

func TestLoadLSTM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spam_lstm.json.gz")
	w := zeroNetwork(3, 100, 0)
	w.Name = ""
	require.NoError(t, artifact.EncodeJSON(path, w))

	m, err := LoadLSTM(path, 3, 100)
	require.NoError(t, err)
	require.Equal(t, "spam_lstm", m.Info().ModelName)

	_, err = LoadLSTM(path, 4, 100)
	require.True(t, apperrors.IsModelLoad(err))

	_, err = LoadLSTM(filepath.Join(dir, "missing.json"), 3, 100)
	require.True(t, apperrors.IsModelLoad(err))
}

func TestTFServing_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/models/spam/versions/3:predict", r.URL.Path)
		var got predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, [][]int{{4, 2, 0}}, got.Instances)
		require.Equal(t, "serving_default", got.SignatureName)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [[0.93]]}`))
	}))
	defer server.Close()

	c := NewTFServing(server.URL+"/", "spam", WithModelVersion("3"), WithSignature("serving_default"))
	p, err := c.Score(context.Background(), sequence.Encoded{4, 2, 0})
	require.NoError(t, err)
	require.InDelta(t, 0.93, p, 1e-12)
	require.Equal(t, Info{Backend: BackendTFServing, ModelName: "spam@3"}, c.Info())
}

func TestTFServing_ScoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "boom"}`},
		{"error field", http.StatusOK, `{"error": "bad input"}`},
		{"no predictions", http.StatusOK, `{"predictions": []}`},
		{"wide output", http.StatusOK, `{"predictions": [[0.1, 0.9]]}`},
		{"not json", http.StatusOK, `predictions`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewTFServing(server.URL, "spam").Score(context.Background(), sequence.Encoded{1})
			require.Error(t, err)
		})
	}
}

func TestTFServing_Health(t *testing.T) {
	var state atomic.Value
	state.Store("AVAILABLE")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/spam", r.URL.Path)
		_, _ = w.Write([]byte(`{"model_version_status":[{"version":"1","state":"` + state.Load().(string) + `","status":{"error_code":"OK"}}]}`))
	}))
	defer server.Close()

	c := NewTFServing(server.URL, "spam")
	require.NoError(t, c.Health(context.Background()))

	state.Store("LOADING")
	require.Error(t, c.Health(context.Background()))
}

func metadataBody(signature string, dims ...string) string {
	shape := ""
	for i, d := range dims {
		if i > 0 {
			shape += ","
		}
		shape += `{"size":"` + d + `","name":""}`
	}
	return `{"model_spec":{"name":"spam","version":"1"},"metadata":{"signature_def":{"signature_def":{"` +
		signature + `":{"inputs":{"embedding_input":{"dtype":"DT_FLOAT","tensor_shape":{"dim":[` + shape +
		`],"unknown_rank":false},"name":"serving_default_embedding_input:0"}},"method_name":"tensorflow/serving/predict"}}}}}`
}

func TestTFServing_CheckInputLength(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"matching length", metadataBody("serving_default", "-1", "100"), false},
		{"dynamic length", metadataBody("serving_default", "-1", "-1"), false},
		{"other length", metadataBody("serving_default", "-1", "50"), true},
		{"rank one", metadataBody("serving_default", "-1"), true},
		{"missing signature", metadataBody("predict", "-1", "100"), true},
		{"not json", "metadata", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/models/spam/metadata", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewTFServing(server.URL, "spam").CheckInputLength(context.Background(), 100)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(_ context.Context, seq sequence.Encoded) (float64, error) {
		calls.Add(1)
		if seq[0] == 9 {
			return 0, errors.New("boom")
		}
		return 0.25, nil
	})

	s, err := NewCached(inner, 8)
	require.NoError(t, err)
	cached, ok := s.(*Cached)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		p, err := cached.Score(context.Background(), sequence.Encoded{1, 2})
		require.NoError(t, err)
		require.Equal(t, 0.25, p)
	}
	require.EqualValues(t, 1, calls.Load())

	_, err = cached.Score(context.Background(), sequence.Encoded{9})
	require.Error(t, err)
	_, err = cached.Score(context.Background(), sequence.Encoded{9})
	require.Error(t, err)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, 1, cached.Len())
	require.Equal(t, BackendFunc, cached.Info().Backend)
}

func TestNewCached_Disabled(t *testing.T) {
	inner := Constant(0.5)
	s, err := NewCached(inner, 0)
	require.NoError(t, err)
	_, isCached := s.(*Cached)
	require.False(t, isCached)
}
