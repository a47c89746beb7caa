package memory

import (
	"context"
	"sync"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/storage"
)

// SweepStore is an in-memory implementation of storage.SweepStore.
type SweepStore struct {
	mu      sync.RWMutex
	records []*domain.SweepRecord
}

// NewSweepStore creates a new in-memory sweep ledger.
func NewSweepStore() *SweepStore {
	return &SweepStore{}
}

// Insert appends a sweep attempt.
func (s *SweepStore) Insert(_ context.Context, record *domain.SweepRecord) error {
	if record == nil || record.TriggerHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	return nil
}

// GetByTriggerHash returns the newest attempt recorded for a trigger.
func (s *SweepStore) GetByTriggerHash(_ context.Context, triggerHash string) (*domain.SweepRecord, error) {
	if triggerHash == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].TriggerHash == triggerHash {
			recordCopy := *s.records[i]
			return &recordCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetRecent returns up to limit records, newest first.
func (s *SweepStore) GetRecent(_ context.Context, limit int) ([]*domain.SweepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*domain.SweepRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(result) < n; i-- {
		recordCopy := *s.records[i]
		result = append(result, &recordCopy)
	}
	return result, nil
}
