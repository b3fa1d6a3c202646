package models

import "time"

// Label is the outcome of a classification.
type Label string

const (
	Spam Label = "Spam"
	Ham  Label = "Ham"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return l == Spam || l == Ham
}

// ScanRecord represents one classification stored in the 'scans' table.
// Records are append-only and never mutated once written.
type ScanRecord struct {
	ID        int64     `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"` // Truncated to the store's max text length
	Label     Label     `json:"label" db:"label"`
	Score     float64   `json:"score" db:"score"` // Confidence in Label, in [0,1]
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// LabelCount is one bar of the analytics chart.
type LabelCount struct {
	Name  Label `json:"name"`
	Value int   `json:"value"`
}

// AnalyzeRequest for single message classification
type AnalyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

// BatchAnalyzeRequest for multiple messages. Empty texts fail individually, not the whole batch.
type BatchAnalyzeRequest struct {
	Messages []MessageInput `json:"messages" binding:"required,min=1,max=100"`
}

// MessageInput represents one message of a batch
type MessageInput struct {
	Text string `json:"text"`
}

// AnalysisResult is returned by the scanner for every classified message.
type AnalysisResult struct {
	ID        int64    `json:"id,omitempty"` // Zero when the scan was not persisted
	Label     Label    `json:"label"`
	Score     float64  `json:"score"`
	Keywords  []string `json:"keywords"`
	Persisted bool     `json:"persisted"`
}

// BatchItemResult pairs a batch position with its result or error message.
type BatchItemResult struct {
	Index  int             `json:"index"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ModelInfo describes the artifacts loaded by the serving pipeline.
type ModelInfo struct {
	Backend        string  `json:"backend"`
	ModelName      string  `json:"model_name,omitempty"`
	VocabularySize int     `json:"vocabulary_size"`
	MaxLen         int     `json:"max_len"`
	Threshold      float64 `json:"threshold"`
	Normalization  string  `json:"normalization"`
}

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthStatus is the body of the health endpoint. Checks maps a component to "ok" or its error.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
