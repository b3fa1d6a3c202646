package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/models"
)

// MemoryStore keeps scans in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	records       []models.ScanRecord
	nextID        int64
	maxTextLength int
	closed        bool
}

func NewMemoryStore(maxTextLength int) *MemoryStore {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	return &MemoryStore{nextID: 1, maxTextLength: maxTextLength}
}

func (s *MemoryStore) Record(ctx context.Context, text string, label models.Label, score float64, at time.Time) (*models.ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("record", err)
	}
	if !label.Valid() {
		return nil, apperrors.NewStorageError("record", errInvalidLabel(label))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.NewStorageError("record", errStoreClosed)
	}
	rec := models.ScanRecord{
		ID:        s.nextID,
		Text:      truncate(text, s.maxTextLength),
		Label:     label,
		Score:     score,
		Timestamp: at.UTC(),
	}
	s.nextID++
	s.records = append(s.records, rec)
	return &rec, nil
}

func (s *MemoryStore) RecentHistory(ctx context.Context, limit int) ([]models.ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("history", err)
	}
	s.mu.RLock()
	out := make([]models.ScanRecord, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LabelCounts(ctx context.Context) (map[models.Label]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("label counts", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Label]int)
	for _, r := range s.records {
		counts[r.Label]++
	}
	return counts, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return apperrors.NewStorageError("ping", errStoreClosed)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
