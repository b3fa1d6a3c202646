package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SPAMSCAN_DATABASE_PATH.
const EnvPrefix = "SPAMSCAN"

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
}

type ServerConfig struct {
	Port             string        `yaml:"port" validate:"required,numeric"`
	Mode             string        `yaml:"mode" validate:"oneof=debug release test"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	AllowedOrigins   []string      `yaml:"allowed_origins" split_words:"true"`
	BatchConcurrency int           `yaml:"batch_concurrency" split_words:"true" validate:"gte=1,lte=64"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type ModelConfig struct {
	Backend             string              `yaml:"backend" validate:"oneof=lstm tfserving"`
	VocabularyPath      string              `yaml:"vocabulary_path" split_words:"true" validate:"required"`
	WeightsPath         string              `yaml:"weights_path" split_words:"true"`
	MaxLen              int                 `yaml:"max_len" split_words:"true" validate:"gte=1"`
	Threshold           float64             `yaml:"threshold" validate:"gt=0,lt=1"`
	KeywordLimit        int                 `yaml:"keyword_limit" split_words:"true" validate:"gte=1"`
	CacheSize           int                 `yaml:"cache_size" split_words:"true" validate:"gte=0"`
	StrictNormalization bool                `yaml:"strict_normalization" split_words:"true"`
	Normalization       NormalizationConfig `yaml:"normalization"`
	TFServing           TFServingConfig     `yaml:"tfserving"`
}

// NormalizationConfig must match the settings the vocabulary was fitted with.
type NormalizationConfig struct {
	Language        string `yaml:"language" validate:"required"`
	PunctuationRule string `yaml:"punctuation_rule" split_words:"true" validate:"oneof=pure substring"`
	Lemmatizer      string `yaml:"lemmatizer" validate:"oneof=wordnet porter none"`
	LexiconPath     string `yaml:"lexicon_path" split_words:"true"`
}

type TFServingConfig struct {
	Endpoint     string        `yaml:"endpoint" validate:"omitempty,url"`
	ModelName    string        `yaml:"model_name" split_words:"true"`
	ModelVersion string        `yaml:"model_version" split_words:"true"`
	Signature    string        `yaml:"signature"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
}

type DatabaseConfig struct {
	Type          string        `yaml:"type" validate:"oneof=sqlite postgres memory"` // "sqlite", "postgres" or "memory"
	Path          string        `yaml:"path"`                                         // SQLite file
	DSN           string        `yaml:"dsn"`                                          // PostgreSQL URL
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxTextLength int           `yaml:"max_text_length" split_words:"true" validate:"gte=1"`
}

type HistoryConfig struct {
	DefaultLimit int `yaml:"default_limit" split_words:"true" validate:"gte=1"`
	MaxLimit     int `yaml:"max_limit" split_words:"true" validate:"gtefield=DefaultLimit"`
	ExportLimit  int `yaml:"export_limit" split_words:"true" validate:"gte=1"`
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             "8000",
			Mode:             "release",
			ShutdownTimeout:  5 * time.Second,
			AllowedOrigins:   []string{"*"},
			BatchConcurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
		Model: ModelConfig{
			Backend:        "lstm",
			VocabularyPath: "./models/tokenizer.json",
			WeightsPath:    "./models/spam_lstm.json",
			MaxLen:         100,
			Threshold:      0.5,
			KeywordLimit:   6,
			CacheSize:      1024,
			Normalization: NormalizationConfig{
				Language:        "english",
				PunctuationRule: "pure",
				Lemmatizer:      "wordnet",
				LexiconPath:     "./models/wordnet_nouns.txt",
			},
			TFServing: TFServingConfig{
				ModelName: "spam_lstm",
				Signature: "serving_default",
				Timeout:   5 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Type:          "sqlite",
			Path:          "./data/scans.db",
			Timeout:       5 * time.Second,
			MaxTextLength: 100,
		},
		History: HistoryConfig{
			DefaultLimit: 50,
			MaxLimit:     500,
			ExportLimit:  10000,
		},
	}
}

// LoadConfig loads configuration from YAML file, applies SPAMSCAN_* environment overrides and validates the result.
// An empty path skips the file.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Expand environment variables in paths and secrets
	config.Model.VocabularyPath = os.ExpandEnv(config.Model.VocabularyPath)
	config.Model.WeightsPath = os.ExpandEnv(config.Model.WeightsPath)
	config.Model.Normalization.LexiconPath = os.ExpandEnv(config.Model.Normalization.LexiconPath)
	config.Model.TFServing.Endpoint = os.ExpandEnv(config.Model.TFServing.Endpoint)
	config.Database.Path = os.ExpandEnv(config.Database.Path)
	config.Database.DSN = os.ExpandEnv(config.Database.DSN)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

var validate = validator.New()

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Model.Backend {
	case "lstm":
		if c.Model.WeightsPath == "" {
			return errors.New("invalid config: model.weights_path is required for the lstm backend")
		}
	case "tfserving":
		if c.Model.TFServing.Endpoint == "" || c.Model.TFServing.ModelName == "" {
			return errors.New("invalid config: model.tfserving.endpoint and model_name are required for the tfserving backend")
		}
	}
	if c.Model.Normalization.Lemmatizer == "wordnet" && c.Model.Normalization.LexiconPath == "" {
		return errors.New("invalid config: model.normalization.lexicon_path is required for the wordnet lemmatizer")
	}
	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("invalid config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("invalid config: database.dsn is required for postgres")
		}
	}
	return nil
}
