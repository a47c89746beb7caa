package watcher

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/observability"
	"sweepwatch/internal/storage"
)

// Default pacing for the detection worker.
const (
	// DefaultCycleInterval is the minimum interval between drain cycle
	// starts; it throttles burst-triggered reactivation.
	DefaultCycleInterval = 2 * time.Second
	// DefaultDetectItemDelay bounds the request rate against the node.
	DefaultDetectItemDelay = 500 * time.Millisecond
)

// Detector drains the ingest queue, resolves each pending hash and enqueues
// sweep triggers for transfers addressed to the watched account.
//
// It runs as a single goroutine, so at most one drain cycle is ever active.
// Signal is idempotent: a signal during a drain leaves one wake token behind,
// which makes the worker re-check the queue before going idle.
type Detector struct {
	ingest   *Queue
	fetcher  *Fetcher
	triggers *Queue
	sweeper  *Sweeper
	watched  string // canonical lower case

	cycleInterval time.Duration
	itemDelay     time.Duration
	gate          RateGate
	clock         func() time.Time

	wake        chan struct{}
	lastCycle   time.Time // owned by the Run goroutine
	cycleStarts atomic.Uint64

	detections storage.DetectionStore // optional archive, best-effort
}

// DetectorOption configures Detector.
type DetectorOption func(*Detector)

// WithCycleInterval sets the minimum interval between drain cycle starts.
func WithCycleInterval(d time.Duration) DetectorOption {
	return func(det *Detector) {
		det.cycleInterval = d
	}
}

// WithDetectItemDelay sets the pause after each processed hash.
func WithDetectItemDelay(d time.Duration) DetectorOption {
	return func(det *Detector) {
		det.itemDelay = d
	}
}

// WithDetectClock sets a custom clock, for deterministic tests.
func WithDetectClock(clock func() time.Time) DetectorOption {
	return func(det *Detector) {
		det.clock = clock
	}
}

// WithDetectionStore archives every detection to store.
func WithDetectionStore(store storage.DetectionStore) DetectorOption {
	return func(det *Detector) {
		det.detections = store
	}
}

// NewDetector creates a detection worker. Matches are pushed to triggers and
// announced to sweeper.
func NewDetector(ingest *Queue, fetcher *Fetcher, triggers *Queue, sweeper *Sweeper, watched string, opts ...DetectorOption) *Detector {
	det := &Detector{
		ingest:        ingest,
		fetcher:       fetcher,
		triggers:      triggers,
		sweeper:       sweeper,
		watched:       strings.ToLower(watched),
		cycleInterval: DefaultCycleInterval,
		itemDelay:     DefaultDetectItemDelay,
		clock:         time.Now,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(det)
	}
	return det
}

// Signal asks the worker to drain the ingest queue. It never blocks and is a
// no-op while a wake token is already pending.
func (det *Detector) Signal() {
	select {
	case det.wake <- struct{}{}:
	default:
	}
}

// CycleStarts returns how many drain cycles have started.
func (det *Detector) CycleStarts() uint64 {
	return det.cycleStarts.Load()
}

// Run processes wake signals until ctx is cancelled.
func (det *Detector) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-det.wake:
		}
		if err := det.drain(ctx); err != nil {
			return err
		}
	}
}

// drain pops and resolves hashes until the ingest queue is empty. Hashes
// pushed while draining are handled in the same cycle.
func (det *Detector) drain(ctx context.Context) error {
	if next := det.lastCycle.Add(det.cycleInterval); !det.lastCycle.IsZero() && det.clock().Before(next) {
		if err := det.gate.WaitUntil(ctx, next); err != nil {
			return err
		}
	}
	det.lastCycle = det.clock()
	det.cycleStarts.Add(1)
	observability.RecordDetectorCycle()

	for {
		hash, ok := det.ingest.Pop()
		if !ok {
			observability.SetIngestQueueDepth(0)
			return nil
		}
		observability.SetIngestQueueDepth(det.ingest.Len())

		if err := det.process(ctx, hash); err != nil {
			return err
		}

		if err := det.gate.Sleep(ctx, det.itemDelay); err != nil {
			return err
		}
	}
}

// process resolves one hash and enqueues a sweep trigger on recipient match.
// Per-item failures are contained here; only context errors escape.
func (det *Detector) process(ctx context.Context, hash string) error {
	tx, err := det.fetcher.Fetch(ctx, hash)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			observability.RecordFetchFailure()
			log.Printf("[detector] skip %s: %v", hash, err)
			return nil
		}
		return err
	}

	if tx.To == "" || !strings.EqualFold(tx.To, det.watched) {
		return nil
	}

	log.Printf("[detector] incoming transfer %s value=%s wei", hash, tx.Value)
	observability.RecordDetection()

	det.triggers.Push(hash)
	observability.SetSweepQueueDepth(det.triggers.Len())
	det.sweeper.Signal()

	if det.detections != nil {
		event := &domain.DetectionEvent{
			TxHash:     tx.Hash,
			Sender:     tx.From,
			Recipient:  tx.To,
			ValueWei:   tx.Value.String(),
			ObservedAt: det.clock().UTC(),
		}
		if err := det.detections.Insert(ctx, event); err != nil {
			log.Printf("[detector] archive detection %s: %v", hash, err)
		}
	}

	return nil
}
