package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/classifier"
	"spam-detector/internal/models"
	"spam-detector/internal/repository"
	"spam-detector/internal/scorer"
	"spam-detector/internal/sequence"
)

// Normalizer turns raw text into vocabulary tokens.
type Normalizer interface {
	Normalize(raw string) []string
	Fingerprint() string
}

// Vocabulary is the read side of the fitted tokenizer.
type Vocabulary interface {
	sequence.Vocabulary
	Size() int
}

// Options tunes the scanner. Zero values fall back to the defaults.
type Options struct {
	MaxLen              int
	Threshold           float64
	KeywordLimit        int
	BatchConcurrency    int
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	ExportLimit         int
}

func (o Options) withDefaults() Options {
	if o.MaxLen <= 0 {
		o.MaxLen = sequence.MaxLen
	}
	if !classifier.ValidThreshold(o.Threshold) {
		o.Threshold = classifier.DefaultThreshold
	}
	if o.KeywordLimit <= 0 {
		o.KeywordLimit = sequence.KeywordLimit
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 4
	}
	if o.DefaultHistoryLimit <= 0 {
		o.DefaultHistoryLimit = 50
	}
	if o.MaxHistoryLimit <= 0 {
		o.MaxHistoryLimit = 500
	}
	if o.MaxHistoryLimit < o.DefaultHistoryLimit {
		o.MaxHistoryLimit = o.DefaultHistoryLimit
	}
	if o.ExportLimit <= 0 {
		o.ExportLimit = 10000
	}
	return o
}

// Scanner runs the normalize, encode, classify and record pipeline.
type Scanner struct {
	normalizer Normalizer
	vocab      Vocabulary
	scorer     scorer.Scorer
	store      repository.ScanStore
	opts       Options
	now        func() time.Time
	logger     *zap.Logger
}

// NewScanner creates a new scanner service
func NewScanner(
	normalizer Normalizer,
	vocab Vocabulary,
	s scorer.Scorer,
	store repository.ScanStore,
	opts Options,
	logger *zap.Logger,
) *Scanner {
	return &Scanner{
		normalizer: normalizer,
		vocab:      vocab,
		scorer:     s,
		store:      store,
		opts:       opts.withDefaults(),
		now:        time.Now,
		logger:     logger,
	}
}

// Analyze classifies text and records the scan.
// When recording fails the classification is still returned, with Persisted false, alongside a StorageError.
func (s *Scanner) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyText
	}

	tokens := s.normalizer.Normalize(text)
	encoded, err := sequence.Encode(tokens, s.vocab, s.opts.MaxLen)
	if err != nil {
		return nil, err
	}

	label, confidence, err := classifier.Classify(ctx, encoded, s.scorer, s.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	result := &models.AnalysisResult{
		Label:    label,
		Score:    confidence,
		Keywords: sequence.Keywords(tokens, s.vocab, s.opts.KeywordLimit),
	}

	rec, err := s.store.Record(ctx, text, label, confidence, s.now())
	if err != nil {
		s.logger.Error("Failed to record scan",
			zap.String("label", string(label)),
			zap.Error(err))
		return result, err
	}

	result.ID = rec.ID
	result.Persisted = true

	s.logger.Info("Message analyzed",
		zap.Int64("id", rec.ID),
		zap.String("label", string(label)),
		zap.Float64("score", confidence),
		zap.Int("tokens", len(tokens)))

	return result, nil
}

// AnalyzeBatch analyzes texts concurrently. Every item gets a result, an error, or both.
func (s *Scanner) AnalyzeBatch(ctx context.Context, texts []string) []models.BatchItemResult {
	results := make([]models.BatchItemResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			res, err := s.Analyze(gctx, text)
			item := models.BatchItemResult{Index: i, Result: res}
			if err != nil {
				item.Error = err.Error()
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	failed := lo.CountBy(results, func(r models.BatchItemResult) bool { return r.Error != "" })
	s.logger.Info("Batch analyzed",
		zap.Int("total", len(texts)),
		zap.Int("failed", failed))

	return results
}

// History returns recent scans. A non-positive limit selects the default; larger limits are capped.
func (s *Scanner) History(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if limit <= 0 {
		limit = s.opts.DefaultHistoryLimit
	}
	if limit > s.opts.MaxHistoryLimit {
		limit = s.opts.MaxHistoryLimit
	}
	return s.store.RecentHistory(ctx, limit)
}

// Export returns every scan up to the export limit, newest first.
func (s *Scanner) Export(ctx context.Context) ([]models.ScanRecord, error) {
	return s.store.RecentHistory(ctx, s.opts.ExportLimit)
}

// Analytics counts scans per label, sorted by label name. No scans yield an empty slice.
func (s *Scanner) Analytics(ctx context.Context) ([]models.LabelCount, error) {
	counts, err := s.store.LabelCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := lo.MapToSlice(counts, func(label models.Label, n int) models.LabelCount {
		return models.LabelCount{Name: label, Value: n}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ModelInfo describes the loaded artifacts.
func (s *Scanner) ModelInfo() models.ModelInfo {
	info := s.scorer.Info()
	return models.ModelInfo{
		Backend:        info.Backend,
		ModelName:      info.ModelName,
		VocabularySize: s.vocab.Size(),
		MaxLen:         s.opts.MaxLen,
		Threshold:      s.opts.Threshold,
		Normalization:  s.normalizer.Fingerprint(),
	}
}

// Health checks the store and the scorer.
func (s *Scanner) Health(ctx context.Context) models.HealthStatus {
	status := models.HealthStatus{Status: models.StatusOK, Checks: map[string]string{}}

	check := func(name string, err error) {
		if err != nil {
			status.Status = models.StatusDegraded
			status.Checks[name] = err.Error()
			s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			return
		}
		status.Checks[name] = models.StatusOK
	}
	check("store", s.store.Ping(ctx))
	check("model", s.scorer.Health(ctx))

	return status
}
