// Package memory provides in-memory store implementations, used by tests and
// by runs without a database.
package memory

import (
	"context"
	"sync"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/storage"
)

// DetectionStore is an in-memory implementation of storage.DetectionStore.
type DetectionStore struct {
	mu     sync.RWMutex
	events []*domain.DetectionEvent
}

// NewDetectionStore creates a new in-memory detection store.
func NewDetectionStore() *DetectionStore {
	return &DetectionStore{}
}

// Insert appends a detection event.
func (s *DetectionStore) Insert(_ context.Context, event *domain.DetectionEvent) error {
	if event == nil || event.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	eventCopy := *event
	s.events = append(s.events, &eventCopy)
	return nil
}

// GetRecent returns up to limit events, newest first.
func (s *DetectionStore) GetRecent(_ context.Context, limit int) ([]*domain.DetectionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*domain.DetectionEvent, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(result) < n; i-- {
		eventCopy := *s.events[i]
		result = append(result, &eventCopy)
	}
	return result, nil
}
