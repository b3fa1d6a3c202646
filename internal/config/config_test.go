package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.Server.Port)
	require.Equal(t, 0.5, cfg.Model.Threshold)
	require.Equal(t, 100, cfg.Model.MaxLen)
	require.Equal(t, 6, cfg.Model.KeywordLimit)
	require.Equal(t, "sqlite", cfg.Database.Type)
	require.Equal(t, 100, cfg.Database.MaxTextLength)
	require.Equal(t, "pure", cfg.Model.Normalization.PunctuationRule)
	require.Equal(t, "./models/wordnet_nouns.txt", cfg.Model.Normalization.LexiconPath)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	t.Setenv("SPAMSCAN_TEST_DATA", "/srv/spam")
	t.Setenv("SPAMSCAN_DATABASE_TYPE", "memory")
	t.Setenv("SPAMSCAN_SERVER_BATCH_CONCURRENCY", "8")

	path := writeConfig(t, `
server:
  port: "9090"
  shutdown_timeout: 10s
model:
  vocabulary_path: ${SPAMSCAN_TEST_DATA}/tokenizer.json.gz
  weights_path: ${SPAMSCAN_TEST_DATA}/weights.json.gz
  threshold: 0.7
  normalization:
    punctuation_rule: substring
database:
  type: sqlite
  path: ./scans.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 8, cfg.Server.BatchConcurrency)
	require.Equal(t, "/srv/spam/tokenizer.json.gz", cfg.Model.VocabularyPath)
	require.Equal(t, "/srv/spam/weights.json.gz", cfg.Model.WeightsPath)
	require.Equal(t, 0.7, cfg.Model.Threshold)
	require.Equal(t, "substring", cfg.Model.Normalization.PunctuationRule)
	// Untouched keys keep their defaults.
	require.Equal(t, "wordnet", cfg.Model.Normalization.Lemmatizer)
	// Environment wins over the file.
	require.Equal(t, "memory", cfg.Database.Type)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"threshold of one", "model:\n  threshold: 1\n"},
		{"zero threshold", "model:\n  threshold: 0\n"},
		{"unknown backend", "model:\n  backend: onnx\n"},
		{"tfserving without endpoint", "model:\n  backend: tfserving\n  tfserving:\n    endpoint: \"\"\n"},
		{"postgres without dsn", "database:\n  type: postgres\n"},
		{"history limits", "history:\n  default_limit: 100\n  max_limit: 10\n"},
		{"unknown punctuation rule", "model:\n  normalization:\n    punctuation_rule: aggressive\n"},
		{"wordnet without lexicon", "model:\n  normalization:\n    lexicon_path: \"\"\n"},
		{"no keywords", "model:\n  keyword_limit: 0\n"},
		{"unknown key", "modle:\n  threshold: 0.4\n"},
		{"not yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestLoadConfig_TFServing(t *testing.T) {
	path := writeConfig(t, `
model:
  backend: tfserving
  tfserving:
    endpoint: http://localhost:8501
    model_name: spam
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8501", cfg.Model.TFServing.Endpoint)
	require.Equal(t, "serving_default", cfg.Model.TFServing.Signature)
}

func TestLoadConfig_ShippedFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yml"))
	require.NoError(t, err)

	want := Default()
	want.Model.TFServing.Endpoint = "http://localhost:8501"
	require.Equal(t, want, cfg)
}
