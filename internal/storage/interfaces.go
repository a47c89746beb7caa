// Package storage defines the store interfaces for the detection archive and
// the sweep ledger, plus shared sentinel errors. Both stores are optional
// and best-effort: a store failure is logged by the caller, never fatal.
package storage

import (
	"context"

	"sweepwatch/internal/domain"
)

// DetectionStore archives observed incoming transfers.
type DetectionStore interface {
	// Insert appends one detection event.
	Insert(ctx context.Context, event *domain.DetectionEvent) error

	// GetRecent returns up to limit events, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.DetectionEvent, error)
}

// SweepStore is the ledger of sweep attempts.
type SweepStore interface {
	// Insert appends one sweep attempt.
	Insert(ctx context.Context, record *domain.SweepRecord) error

	// GetRecent returns up to limit records, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.SweepRecord, error)

	// GetByTriggerHash returns the attempt recorded for a trigger, or
	// ErrNotFound if the trigger never reached submission.
	GetByTriggerHash(ctx context.Context, triggerHash string) (*domain.SweepRecord, error)
}
