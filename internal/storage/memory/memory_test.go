package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/storage"
)

func TestDetectionStore_InsertAndGetRecent(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		event := &domain.DetectionEvent{
			TxHash:     fmt.Sprintf("0x%02d", i),
			Sender:     "0xsender",
			Recipient:  "0xwatch",
			ValueWei:   "1000",
			ObservedAt: time.Now().UTC(),
		}
		if err := store.Insert(ctx, event); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	events, err := store.GetRecent(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	// Newest first
	for i, want := range []string{"0x04", "0x03", "0x02"} {
		if events[i].TxHash != want {
			t.Errorf("events[%d].TxHash = %q, want %q", i, events[i].TxHash, want)
		}
	}
}

func TestDetectionStore_RejectsInvalidInput(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.DetectionEvent{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(empty hash) = %v, want ErrInvalidInput", err)
	}
}

func TestDetectionStore_CopiesOnInsert(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	event := &domain.DetectionEvent{TxHash: "0xaa", ValueWei: "1"}
	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	event.ValueWei = "mutated"

	events, err := store.GetRecent(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if events[0].ValueWei != "1" {
		t.Error("stored event shares memory with the caller's value")
	}
}

func TestSweepStore_InsertAndGetRecent(t *testing.T) {
	store := NewSweepStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		rec := &domain.SweepRecord{
			SweepHash:   fmt.Sprintf("0xsweep%02d", i),
			TriggerHash: fmt.Sprintf("0xtrig%02d", i),
			AmountWei:   "790000",
			GasPriceWei: "10",
			Status:      domain.SweepSubmitted,
			SubmittedAt: time.Now().UTC(),
		}
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	recs, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].TriggerHash != "0xtrig03" || recs[1].TriggerHash != "0xtrig02" {
		t.Errorf("records not newest first: %q, %q", recs[0].TriggerHash, recs[1].TriggerHash)
	}
}

func TestSweepStore_GetByTriggerHash(t *testing.T) {
	store := NewSweepStore()
	ctx := context.Background()

	for _, rec := range []*domain.SweepRecord{
		{SweepHash: "0xsweep1", TriggerHash: "0xtrig1", AmountWei: "1", GasPriceWei: "1", Status: domain.SweepFailed},
		{SweepHash: "0xsweep2", TriggerHash: "0xtrig1", AmountWei: "2", GasPriceWei: "1", Status: domain.SweepSubmitted},
		{SweepHash: "0xsweep3", TriggerHash: "0xtrig2", AmountWei: "3", GasPriceWei: "1", Status: domain.SweepSubmitted},
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rec, err := store.GetByTriggerHash(ctx, "0xtrig1")
	if err != nil {
		t.Fatalf("GetByTriggerHash: %v", err)
	}
	// Newest attempt wins
	if rec.SweepHash != "0xsweep2" {
		t.Errorf("SweepHash = %q, want %q", rec.SweepHash, "0xsweep2")
	}

	if _, err := store.GetByTriggerHash(ctx, "0xunknown"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByTriggerHash(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByTriggerHash(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("GetByTriggerHash(empty) = %v, want ErrInvalidInput", err)
	}
}

func TestSweepStore_AcceptsFailedAttemptWithoutSweepHash(t *testing.T) {
	store := NewSweepStore()
	rec := &domain.SweepRecord{
		TriggerHash: "0xtrig",
		AmountWei:   "790000",
		GasPriceWei: "10",
		Status:      domain.SweepFailed,
		Error:       "nonce too low",
		SubmittedAt: time.Now().UTC(),
	}
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestSweepStore_RejectsInvalidInput(t *testing.T) {
	store := NewSweepStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) = %v, want ErrInvalidInput", err)
	}
	if err := store.Insert(ctx, &domain.SweepRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(empty trigger) = %v, want ErrInvalidInput", err)
	}
}
