package clickhouse

import (
	"context"
	"fmt"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/storage"
)

// DetectionStore is a ClickHouse implementation of storage.DetectionStore.
type DetectionStore struct {
	conn *Conn
}

// NewDetectionStore creates a new ClickHouse detection archive.
func NewDetectionStore(conn *Conn) *DetectionStore {
	return &DetectionStore{conn: conn}
}

// Insert appends a detection event.
func (s *DetectionStore) Insert(ctx context.Context, event *domain.DetectionEvent) error {
	if event == nil || event.TxHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO detections (tx_hash, sender, recipient, value_wei, observed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if err := s.conn.Exec(ctx, query,
		event.TxHash,
		event.Sender,
		event.Recipient,
		event.ValueWei,
		event.ObservedAt,
	); err != nil {
		return fmt.Errorf("insert detection event: %w", err)
	}

	return nil
}

// GetRecent returns up to limit events, newest first.
func (s *DetectionStore) GetRecent(ctx context.Context, limit int) ([]*domain.DetectionEvent, error) {
	query := `
		SELECT tx_hash, sender, recipient, value_wei, observed_at
		FROM detections
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query detection events: %w", err)
	}
	defer rows.Close()

	var result []*domain.DetectionEvent
	for rows.Next() {
		var event domain.DetectionEvent
		if err := rows.Scan(&event.TxHash, &event.Sender, &event.Recipient, &event.ValueWei, &event.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		result = append(result, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection events: %w", err)
	}

	return result, nil
}
