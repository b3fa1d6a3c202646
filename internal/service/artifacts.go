package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/config"
	"spam-detector/internal/scorer"
	"spam-detector/internal/textproc"
	"spam-detector/internal/vocab"
)

// Artifacts are the read-only inputs of the pipeline, loaded once at startup.
type Artifacts struct {
	Profile *textproc.Profile
	Vocab   *vocab.Vocabulary
	Scorer  scorer.Scorer
}

// ProfileConfig maps the normalization section of the config to a textproc profile.
func ProfileConfig(cfg config.NormalizationConfig) textproc.ProfileConfig {
	return textproc.ProfileConfig{
		Language:        cfg.Language,
		PunctuationRule: cfg.PunctuationRule,
		Lemmatizer:      cfg.Lemmatizer,
		LexiconPath:     cfg.LexiconPath,
	}
}

// NewProfile builds the normalization profile shared by serving and vocabulary fitting.
// WordNet lemmatization is only exact with the noun lexicon, so it is required.
func NewProfile(cfg config.NormalizationConfig) (*textproc.Profile, error) {
	if (cfg.Lemmatizer == "" || cfg.Lemmatizer == textproc.LemmatizerWordNet) && cfg.LexiconPath == "" {
		return nil, apperrors.NewModelLoadError("normalization profile",
			errors.New("the wordnet lemmatizer requires lexicon_path"))
	}
	profile, err := textproc.NewProfile(ProfileConfig(cfg))
	if err != nil {
		return nil, apperrors.NewModelLoadError("normalization profile", err)
	}
	return profile, nil
}

// LoadArtifacts builds the normalization profile, loads the vocabulary and connects the scorer.
// Every failure is a ModelLoadError.
func LoadArtifacts(ctx context.Context, cfg config.ModelConfig, logger *zap.Logger) (*Artifacts, error) {
	profile, err := NewProfile(cfg.Normalization)
	if err != nil {
		return nil, err
	}

	v, err := vocab.Load(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	if err := checkNormalization(v, profile, cfg.StrictNormalization, logger); err != nil {
		return nil, err
	}

	var s scorer.Scorer
	switch cfg.Backend {
	case scorer.BackendLSTM:
		s, err = scorer.LoadLSTM(cfg.WeightsPath, v.Size(), cfg.MaxLen)
		if err != nil {
			return nil, err
		}
	case scorer.BackendTFServing:
		opts := []scorer.TFServingOption{scorer.WithSignature(cfg.TFServing.Signature)}
		if cfg.TFServing.ModelVersion != "" {
			opts = append(opts, scorer.WithModelVersion(cfg.TFServing.ModelVersion))
		}
		if cfg.TFServing.Timeout > 0 {
			opts = append(opts, scorer.WithTimeout(cfg.TFServing.Timeout))
		}
		client := scorer.NewTFServing(cfg.TFServing.Endpoint, cfg.TFServing.ModelName, opts...)
		if err := client.Health(ctx); err != nil {
			return nil, apperrors.NewModelLoadError("tfserving model", err)
		}
		if err := client.CheckInputLength(ctx, cfg.MaxLen); err != nil {
			return nil, apperrors.NewModelLoadError("tfserving model", err)
		}
		s = client
	default:
		return nil, apperrors.NewModelLoadError("model", fmt.Errorf("unknown backend %q", cfg.Backend))
	}

	s, err = scorer.NewCached(s, cfg.CacheSize)
	if err != nil {
		return nil, apperrors.NewModelLoadError("score cache", err)
	}

	info := s.Info()
	logger.Info("Model artifacts loaded",
		zap.String("backend", info.Backend),
		zap.String("model", info.ModelName),
		zap.Int("vocabulary_size", v.Size()),
		zap.Int("max_len", cfg.MaxLen),
		zap.String("normalization", profile.String()),
		zap.String("fingerprint", profile.Fingerprint()))

	return &Artifacts{Profile: profile, Vocab: v, Scorer: s}, nil
}

// checkNormalization rejects a vocabulary fitted under a different profile.
// Vocabularies exported without a fingerprint are accepted unless strict is set.
func checkNormalization(v *vocab.Vocabulary, p *textproc.Profile, strict bool, logger *zap.Logger) error {
	recorded := v.Normalization()
	switch {
	case recorded == "" && strict:
		return apperrors.NewModelLoadError("vocabulary", errors.New("no normalization fingerprint recorded"))
	case recorded == "":
		logger.Warn("Vocabulary carries no normalization fingerprint, assuming it matches the configured profile",
			zap.String("profile", p.String()))
		return nil
	case recorded != p.Fingerprint():
		return apperrors.NewModelLoadError("vocabulary",
			fmt.Errorf("fitted with normalization %s, configured profile %s is %s", recorded, p, p.Fingerprint()))
	}
	return nil
}
