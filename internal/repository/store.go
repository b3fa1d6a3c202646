//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../../mocks/mock_scan_store.go -package=mocks
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"spam-detector/internal/models"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMemory   = "memory"

	DefaultMaxTextLength = 100
	DefaultTimeout       = 5 * time.Second
)

var errStoreClosed = errors.New("store is closed")

func errInvalidLabel(l models.Label) error {
	return fmt.Errorf("invalid label %q", l)
}

// ScanStore is the append-only log of classifications.
type ScanStore interface {
	// Record persists one scan and returns it with its assigned id.
	Record(ctx context.Context, text string, label models.Label, score float64, at time.Time) (*models.ScanRecord, error)
	// RecentHistory returns at most limit records, newest first.
	RecentHistory(ctx context.Context, limit int) ([]models.ScanRecord, error)
	// LabelCounts counts every record per label.
	LabelCounts(ctx context.Context) (map[models.Label]int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and tunes a store back-end.
type Options struct {
	Type          string
	Path          string // SQLite file
	DSN           string // PostgreSQL connection string
	Timeout       time.Duration
	MaxTextLength int
}

func (o Options) withDefaults() Options {
	if o.Type == "" {
		o.Type = TypeSQLite
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = DefaultMaxTextLength
	}
	return o
}

// New opens the configured back-end.
func New(opts Options, logger *zap.Logger) (ScanStore, error) {
	opts = opts.withDefaults()
	switch opts.Type {
	case TypeSQLite:
		return NewSQLiteStore(opts, logger)
	case TypePostgres:
		return NewPostgresStore(opts, logger)
	case TypeMemory:
		return NewMemoryStore(opts.MaxTextLength), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", opts.Type)
	}
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
