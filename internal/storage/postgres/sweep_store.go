package postgres

import (
	"context"
	"fmt"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/storage"
)

// SweepStore is a PostgreSQL implementation of storage.SweepStore.
type SweepStore struct {
	pool *Pool
}

// NewSweepStore creates a new PostgreSQL sweep ledger.
func NewSweepStore(pool *Pool) *SweepStore {
	return &SweepStore{pool: pool}
}

// Insert appends a sweep attempt.
func (s *SweepStore) Insert(ctx context.Context, record *domain.SweepRecord) error {
	if record == nil || record.TriggerHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sweeps (sweep_hash, trigger_hash, amount_wei, gas_price_wei, status, error, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		record.SweepHash,
		record.TriggerHash,
		record.AmountWei,
		record.GasPriceWei,
		string(record.Status),
		record.Error,
		record.SubmittedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sweep record: %w", err)
	}

	return nil
}

// GetByTriggerHash returns the newest attempt recorded for a trigger, or
// storage.ErrNotFound if none exists.
func (s *SweepStore) GetByTriggerHash(ctx context.Context, triggerHash string) (*domain.SweepRecord, error) {
	if triggerHash == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT sweep_hash, trigger_hash, amount_wei::text, gas_price_wei::text, status, error, submitted_at
		FROM sweeps
		WHERE trigger_hash = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT 1
	`

	var rec domain.SweepRecord
	var status string
	err := s.pool.QueryRow(ctx, query, triggerHash).Scan(
		&rec.SweepHash, &rec.TriggerHash, &rec.AmountWei, &rec.GasPriceWei, &status, &rec.Error, &rec.SubmittedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sweep record by trigger: %w", err)
	}
	rec.Status = domain.SweepStatus(status)

	return &rec, nil
}

// GetRecent returns up to limit records, newest first.
func (s *SweepStore) GetRecent(ctx context.Context, limit int) ([]*domain.SweepRecord, error) {
	query := `
		SELECT sweep_hash, trigger_hash, amount_wei::text, gas_price_wei::text, status, error, submitted_at
		FROM sweeps
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sweep records: %w", err)
	}
	defer rows.Close()

	var result []*domain.SweepRecord
	for rows.Next() {
		var rec domain.SweepRecord
		var status string
		if err := rows.Scan(&rec.SweepHash, &rec.TriggerHash, &rec.AmountWei, &rec.GasPriceWei, &status, &rec.Error, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan sweep record: %w", err)
		}
		rec.Status = domain.SweepStatus(status)
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep records: %w", err)
	}

	return result, nil
}
