package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"sweepwatch/internal/observability"
)

// ErrTransportClosed reports that the pending-transaction feed closed or
// failed. The pipeline holds no recoverable state, so the process should
// exit and let a supervisor restart it with a fresh connection and empty
// queues.
var ErrTransportClosed = errors.New("pending subscription transport closed")

// Runner wires the pending feed into the ingest queue and supervises both
// workers.
type Runner struct {
	source   PendingSource
	ingest   *Queue
	detector *Detector
	sweeper  *Sweeper
}

// NewRunner creates a pipeline runner.
func NewRunner(source PendingSource, ingest *Queue, detector *Detector, sweeper *Sweeper) *Runner {
	return &Runner{
		source:   source,
		ingest:   ingest,
		detector: detector,
		sweeper:  sweeper,
	}
}

// Run subscribes to the pending feed and runs the pipeline until ctx is
// cancelled or the transport drops. A transport drop returns
// ErrTransportClosed.
func (r *Runner) Run(ctx context.Context) error {
	hashes, err := r.source.SubscribePending(ctx)
	if err != nil {
		return fmt.Errorf("subscribe pending: %w", err)
	}
	log.Printf("[runner] subscribed to pending transactions")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.detector.Run(ctx)
	})
	g.Go(func() error {
		return r.sweeper.Run(ctx)
	})
	g.Go(func() error {
		return r.ingestLoop(ctx, hashes)
	})

	return g.Wait()
}

// ingestLoop pushes every inbound hash into the ingest queue and signals the
// detection worker. Push always succeeds; overflow evicts the oldest hash.
func (r *Runner) ingestLoop(ctx context.Context, hashes <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case hash, ok := <-hashes:
			if !ok {
				log.Printf("[runner] pending feed closed")
				return ErrTransportClosed
			}

			observability.RecordPendingSeen()
			if dropped, evicted := r.ingest.Push(hash); evicted {
				observability.RecordPendingEvicted()
				log.Printf("[ingest] queue full, evicted oldest %s", dropped)
			}
			observability.SetIngestQueueDepth(r.ingest.Len())
			r.detector.Signal()
		}
	}
}
