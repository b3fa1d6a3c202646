package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/artifact"
	"spam-detector/internal/sequence"
)

const weightsFormat = "keras-lstm-v1"

// WeightsFile is the exported form of Embedding -> LSTM -> Dense... -> Dense(1, sigmoid).
// Matrices follow the Keras layout: kernel[input][output], LSTM gates ordered i, f, c, o.
type WeightsFile struct {
	Format      string       `json:"format"`
	Name        string       `json:"name,omitempty"`
	InputLength int          `json:"input_length"`
	Embedding   [][]float64  `json:"embedding"`
	LSTM        LSTMWeights  `json:"lstm"`
	Dense       []DenseLayer `json:"dense"`
}

type LSTMWeights struct {
	Units               int         `json:"units"`
	Kernel              [][]float64 `json:"kernel"`
	RecurrentKernel     [][]float64 `json:"recurrent_kernel"`
	Bias                []float64   `json:"bias"`
	Activation          string      `json:"activation,omitempty"`
	RecurrentActivation string      `json:"recurrent_activation,omitempty"`
}

type DenseLayer struct {
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type activation func(float64) float64

var activations = map[string]activation{
	"linear":       func(x float64) float64 { return x },
	"relu":         func(x float64) float64 { return math.Max(0, x) },
	"tanh":         math.Tanh,
	"sigmoid":      sigmoid,
	"hard_sigmoid": hardSigmoid,
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func hardSigmoid(x float64) float64 { return math.Max(0, math.Min(1, 0.2*x+0.5)) }

type denseLayer struct {
	kernel [][]float64
	bias   []float64
	act    activation
}

// LSTM runs the trained recurrent network in process.
type LSTM struct {
	name        string
	inputLength int
	embedding   [][]float64
	units       int
	kernel      [][]float64
	recurrent   [][]float64
	bias        []float64
	act         activation
	recAct      activation
	dense       []denseLayer
}

// LoadLSTM reads a weights artifact and checks it against the deployed vocabulary and input length.
func LoadLSTM(path string, vocabSize, maxLen int) (*LSTM, error) {
	var w WeightsFile
	if err := artifact.DecodeJSON(path, &w); err != nil {
		return nil, apperrors.NewModelLoadError("model weights", err)
	}
	if w.Name == "" {
		w.Name = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".gz"), ".json")
	}
	m, err := NewLSTM(&w, vocabSize, maxLen)
	if err != nil {
		return nil, apperrors.NewModelLoadError("model weights", fmt.Errorf("%s: %w", path, err))
	}
	return m, nil
}

// NewLSTM validates every shape of w before building the network.
func NewLSTM(w *WeightsFile, vocabSize, maxLen int) (*LSTM, error) {
	if w.Format != "" && w.Format != weightsFormat {
		return nil, fmt.Errorf("unsupported weights format %q", w.Format)
	}
	if w.InputLength != maxLen {
		return nil, fmt.Errorf("model input_length %d does not match max length %d", w.InputLength, maxLen)
	}
	if len(w.Embedding) != vocabSize+1 {
		return nil, fmt.Errorf("embedding has %d rows, vocabulary needs %d", len(w.Embedding), vocabSize+1)
	}
	dim := len(w.Embedding[0])
	if dim == 0 {
		return nil, errors.New("embedding dimension is zero")
	}
	for i, row := range w.Embedding {
		if len(row) != dim {
			return nil, fmt.Errorf("embedding row %d has %d columns, expected %d", i, len(row), dim)
		}
	}

	units := w.LSTM.Units
	if units <= 0 {
		return nil, fmt.Errorf("lstm units must be positive, got %d", units)
	}
	if err := checkMatrix("lstm kernel", w.LSTM.Kernel, dim, 4*units); err != nil {
		return nil, err
	}
	if err := checkMatrix("lstm recurrent_kernel", w.LSTM.RecurrentKernel, units, 4*units); err != nil {
		return nil, err
	}
	if len(w.LSTM.Bias) != 4*units {
		return nil, fmt.Errorf("lstm bias has %d values, expected %d", len(w.LSTM.Bias), 4*units)
	}
	act, err := lookupActivation(w.LSTM.Activation, "tanh")
	if err != nil {
		return nil, err
	}
	recAct, err := lookupActivation(w.LSTM.RecurrentActivation, "sigmoid")
	if err != nil {
		return nil, err
	}

	if len(w.Dense) == 0 {
		return nil, errors.New("at least one dense layer is required")
	}
	dense := make([]denseLayer, 0, len(w.Dense))
	in := units
	for i, d := range w.Dense {
		if len(d.Kernel) == 0 {
			return nil, fmt.Errorf("dense layer %d has an empty kernel", i)
		}
		out := len(d.Kernel[0])
		if err := checkMatrix(fmt.Sprintf("dense layer %d kernel", i), d.Kernel, in, out); err != nil {
			return nil, err
		}
		if len(d.Bias) != out {
			return nil, fmt.Errorf("dense layer %d bias has %d values, expected %d", i, len(d.Bias), out)
		}
		a, err := lookupActivation(d.Activation, "linear")
		if err != nil {
			return nil, err
		}
		dense = append(dense, denseLayer{kernel: d.Kernel, bias: d.Bias, act: a})
		in = out
	}
	last := w.Dense[len(w.Dense)-1]
	if in != 1 || last.Activation != "sigmoid" {
		return nil, fmt.Errorf("output layer must be Dense(1, sigmoid), got Dense(%d, %s)", in, last.Activation)
	}

	return &LSTM{
		name:        w.Name,
		inputLength: w.InputLength,
		embedding:   w.Embedding,
		units:       units,
		kernel:      w.LSTM.Kernel,
		recurrent:   w.LSTM.RecurrentKernel,
		bias:        w.LSTM.Bias,
		act:         act,
		recAct:      recAct,
		dense:       dense,
	}, nil
}

func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%s has %d rows, expected %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%s row %d has %d columns, expected %d", name, i, len(row), cols)
		}
	}
	return nil
}

func lookupActivation(name, fallback string) (activation, error) {
	if name == "" {
		name = fallback
	}
	a, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
	return a, nil
}

// Score runs the full forward pass. Padding positions are fed through the network like any other id.
func (m *LSTM) Score(ctx context.Context, seq sequence.Encoded) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(seq) != m.inputLength {
		return 0, fmt.Errorf("sequence length %d does not match model input length %d", len(seq), m.inputLength)
	}

	u := m.units
	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, 4*u)

	for step, id := range seq {
		if id < 0 || id >= len(m.embedding) {
			return 0, fmt.Errorf("id %d at position %d is outside the embedding table", id, step)
		}
		x := m.embedding[id]

		copy(z, m.bias)
		for i, xi := range x {
			if xi == 0 {
				continue
			}
			row := m.kernel[i]
			for j := range z {
				z[j] += xi * row[j]
			}
		}
		for i, hi := range h {
			if hi == 0 {
				continue
			}
			row := m.recurrent[i]
			for j := range z {
				z[j] += hi * row[j]
			}
		}

		for k := 0; k < u; k++ {
			ig := m.recAct(z[k])
			fg := m.recAct(z[u+k])
			cand := m.act(z[2*u+k])
			og := m.recAct(z[3*u+k])
			c[k] = fg*c[k] + ig*cand
			h[k] = og * m.act(c[k])
		}
	}

	out := h
	for _, layer := range m.dense {
		next := make([]float64, len(layer.bias))
		copy(next, layer.bias)
		for i, v := range out {
			row := layer.kernel[i]
			for j := range next {
				next[j] += v * row[j]
			}
		}
		for j := range next {
			next[j] = layer.act(next[j])
		}
		out = next
	}
	return out[0], nil
}

func (m *LSTM) Health(context.Context) error { return nil }

func (m *LSTM) Info() Info { return Info{Backend: BackendLSTM, ModelName: m.name} }
