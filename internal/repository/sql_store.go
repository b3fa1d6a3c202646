package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/models"
)

// SQLStore keeps scans in SQLite or PostgreSQL.
type SQLStore struct {
	db            *sqlx.DB
	dialect       string
	timeout       time.Duration
	maxTextLength int
	logger        *zap.Logger

	initMu sync.Mutex
	ready  bool
}

// NewSQLiteStore opens the SQLite file at opts.Path. The schema is created on first use.
func NewSQLiteStore(opts Options, logger *zap.Logger) (*SQLStore, error) {
	opts = opts.withDefaults()
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite store needs a database path")
	}
	db, err := sqlx.Open("sqlite", sqliteDSN(opts.Path, opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers, so ids are assigned in commit order.
	db.SetMaxOpenConns(1)

	logger.Info("Scan store opened", zap.String("type", TypeSQLite), zap.String("db_path", opts.Path))
	return newSQLStore(db, TypeSQLite, opts, logger), nil
}

// NewPostgresStore connects to opts.DSN. The schema is created on first use.
func NewPostgresStore(opts Options, logger *zap.Logger) (*SQLStore, error) {
	opts = opts.withDefaults()
	if opts.DSN == "" {
		return nil, fmt.Errorf("postgres store needs a dsn")
	}
	db, err := sqlx.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("Scan store opened", zap.String("type", TypePostgres))
	return newSQLStore(db, TypePostgres, opts, logger), nil
}

func newSQLStore(db *sqlx.DB, dialect string, opts Options, logger *zap.Logger) *SQLStore {
	return &SQLStore{
		db:            db,
		dialect:       dialect,
		timeout:       opts.Timeout,
		maxTextLength: opts.MaxTextLength,
		logger:        logger,
	}
}

func sqliteDSN(path string, timeout time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_time_format=sqlite",
		path, sep, timeout.Milliseconds())
}

// ensureSchema runs the migrations once. A failed attempt is retried by the next call.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready {
		return nil
	}
	if err := migrateDB(ctx, s.db, s.dialect); err != nil {
		return err
	}
	s.ready = true
	s.logger.Info("Scan store schema is up to date", zap.String("type", s.dialect))
	return nil
}

func (s *SQLStore) begin(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	if err := s.ensureSchema(ctx); err != nil {
		cancel()
		return nil, nil, apperrors.NewStorageError(op, err)
	}
	return ctx, cancel, nil
}

// Record inserts one scan in its own transaction.
func (s *SQLStore) Record(ctx context.Context, text string, label models.Label, score float64, at time.Time) (*models.ScanRecord, error) {
	const op = "record"
	if !label.Valid() {
		return nil, apperrors.NewStorageError(op, errInvalidLabel(label))
	}
	ctx, cancel, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer cancel()

	rec := &models.ScanRecord{
		Text:      truncate(text, s.maxTextLength),
		Label:     label,
		Score:     score,
		Timestamp: at.UTC().Truncate(time.Microsecond),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(`INSERT INTO scans (text, label, score, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := tx.QueryRowxContext(ctx, query, rec.Text, rec.Label, rec.Score, rec.Timestamp).Scan(&rec.ID); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	return rec, nil
}

// RecentHistory returns the newest records first; records with equal timestamps are ordered by id.
func (s *SQLStore) RecentHistory(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	const op = "history"
	if limit <= 0 {
		return []models.ScanRecord{}, nil
	}
	ctx, cancel, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer cancel()

	records := []models.ScanRecord{}
	query := s.db.Rebind(`
		SELECT id, text, label, score, created_at
		FROM scans
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}
	for i := range records {
		records[i].Timestamp = records[i].Timestamp.UTC()
	}
	return records, nil
}

// LabelCounts aggregates over the whole log.
func (s *SQLStore) LabelCounts(ctx context.Context) (map[models.Label]int, error) {
	const op = "label counts"
	ctx, cancel, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []struct {
		Label models.Label `db:"label"`
		Count int          `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT label, COUNT(*) AS count FROM scans GROUP BY label`); err != nil {
		return nil, apperrors.NewStorageError(op, err)
	}

	counts := make(map[models.Label]int, len(rows))
	for _, r := range rows {
		counts[r.Label] = r.Count
	}
	return counts, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return apperrors.NewStorageError("ping", s.db.PingContext(ctx))
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
