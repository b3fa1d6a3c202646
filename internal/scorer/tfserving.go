package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spam-detector/internal/sequence"
)

// TFServing scores sequences through a TensorFlow Serving REST endpoint.
type TFServing struct {
	endpoint      string
	modelName     string
	modelVersion  string
	signatureName string
	httpClient    *http.Client
}

// TFServingOption configures a TFServing client.
type TFServingOption func(*TFServing)

func WithModelVersion(version string) TFServingOption {
	return func(c *TFServing) { c.modelVersion = version }
}

func WithSignature(name string) TFServingOption {
	return func(c *TFServing) { c.signatureName = name }
}

func WithTimeout(timeout time.Duration) TFServingOption {
	return func(c *TFServing) { c.httpClient.Timeout = timeout }
}

// NewTFServing creates a client for endpoint (for example http://localhost:8501).
func NewTFServing(endpoint, modelName string, opts ...TFServingOption) *TFServing {
	c := &TFServing{
		endpoint:  strings.TrimRight(endpoint, "/"),
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type predictRequest struct {
	SignatureName string  `json:"signature_name,omitempty"`
	Instances     [][]int `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
	Error       string            `json:"error,omitempty"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
		Status  struct {
			ErrorCode    string `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	} `json:"model_version_status"`
}

type modelMetadataResponse struct {
	Metadata struct {
		SignatureDef struct {
			SignatureDef map[string]struct {
				Inputs map[string]struct {
					TensorShape struct {
						Dim []struct {
							Size json.Number `json:"size"`
						} `json:"dim"`
					} `json:"tensor_shape"`
				} `json:"inputs"`
			} `json:"signature_def"`
		} `json:"signature_def"`
	} `json:"metadata"`
}

const defaultSignature = "serving_default"

func (c *TFServing) modelURL() string {
	url := fmt.Sprintf("%s/v1/models/%s", c.endpoint, c.modelName)
	if c.modelVersion != "" {
		url = fmt.Sprintf("%s/versions/%s", url, c.modelVersion)
	}
	return url
}

// Score sends one instance and returns its single sigmoid output.
func (c *TFServing) Score(ctx context.Context, seq sequence.Encoded) (float64, error) {
	jsonData, err := json.Marshal(predictRequest{
		SignatureName: c.signatureName,
		Instances:     [][]int{seq},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL()+":predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("tf serving returned status %d: %s", resp.StatusCode, string(body))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return 0, fmt.Errorf("tf serving error: %s", result.Error)
	}
	if len(result.Predictions) != 1 {
		return 0, fmt.Errorf("expected 1 prediction, got %d", len(result.Predictions))
	}
	return decodePrediction(result.Predictions[0])
}

// decodePrediction accepts both 0.93 and [0.93].
func decodePrediction(raw json.RawMessage) (float64, error) {
	var p float64
	if err := json.Unmarshal(raw, &p); err == nil {
		return p, nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err != nil {
		return 0, fmt.Errorf("unexpected prediction %s", string(raw))
	}
	if len(arr) != 1 {
		return 0, fmt.Errorf("expected a single output, got %d", len(arr))
	}
	return arr[0], nil
}

// Health reports an error unless the model has an AVAILABLE version.
func (c *TFServing) Health(ctx context.Context) error {
	var status modelStatusResponse
	if err := c.getJSON(ctx, c.modelURL(), &status); err != nil {
		return fmt.Errorf("failed to get model status: %w", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %s has no AVAILABLE version", c.modelName)
}

// CheckInputLength reads the signature metadata and verifies the model takes one [batch, maxLen] input.
// A dynamic sequence dimension (-1) is accepted.
func (c *TFServing) CheckInputLength(ctx context.Context, maxLen int) error {
	var meta modelMetadataResponse
	if err := c.getJSON(ctx, c.modelURL()+"/metadata", &meta); err != nil {
		return fmt.Errorf("failed to get model metadata: %w", err)
	}

	name := c.signatureName
	if name == "" {
		name = defaultSignature
	}
	sig, ok := meta.Metadata.SignatureDef.SignatureDef[name]
	if !ok {
		return fmt.Errorf("model %s has no signature %q", c.modelName, name)
	}
	if len(sig.Inputs) != 1 {
		return fmt.Errorf("signature %q has %d inputs, expected 1", name, len(sig.Inputs))
	}
	for input, spec := range sig.Inputs {
		dims := spec.TensorShape.Dim
		if len(dims) != 2 {
			return fmt.Errorf("input %s has rank %d, expected 2", input, len(dims))
		}
		size, err := strconv.Atoi(dims[1].Size.String())
		if err != nil {
			return fmt.Errorf("input %s: invalid dimension %q", input, dims[1].Size)
		}
		if size != -1 && size != maxLen {
			return fmt.Errorf("input %s takes sequences of %d, configured max_len is %d", input, size, maxLen)
		}
	}
	return nil
}

func (c *TFServing) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tf serving returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *TFServing) Info() Info {
	name := c.modelName
	if c.modelVersion != "" {
		name += "@" + c.modelVersion
	}
	return Info{Backend: BackendTFServing, ModelName: name}
}
