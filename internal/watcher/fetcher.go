package watcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"sweepwatch/internal/ethereum"
	"sweepwatch/internal/observability"
)

// Default retry configuration for transaction resolution.
const (
	DefaultFetchAttempts  = 5
	DefaultFetchBaseDelay = 1500 * time.Millisecond
)

// NotFoundError reports a transaction that stayed unknown for the whole
// retry budget. Callers treat it as a soft failure: log, skip the item,
// keep draining.
type NotFoundError struct {
	Hash string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", e.Hash)
}

// Fetcher resolves pending hashes into full transactions with bounded
// retries and exponential backoff. A lookup that returns nothing is retried
// the same as a failed lookup; fresh pending hashes routinely race ahead of
// node propagation.
type Fetcher struct {
	client    ChainClient
	attempts  int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchAttempts sets the maximum number of lookup attempts.
func WithFetchAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		f.attempts = n
	}
}

// WithFetchBaseDelay sets the first backoff delay; each subsequent delay
// doubles.
func WithFetchBaseDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithFetchSleep overrides the backoff sleep, for deterministic tests.
func WithFetchSleep(sleep func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a retrying fetcher around client.
func NewFetcher(client ChainClient, opts ...FetcherOption) *Fetcher {
	gate := RateGate{}
	f := &Fetcher{
		client:    client,
		attempts:  DefaultFetchAttempts,
		baseDelay: DefaultFetchBaseDelay,
		sleep:     gate.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves hash, retrying transient failures and not-yet-visible
// lookups. After the retry budget it returns *NotFoundError; the only other
// error it returns is context cancellation.
func (f *Fetcher) Fetch(ctx context.Context, hash string) (*ethereum.Transaction, error) {
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := f.baseDelay << (attempt - 1)
			observability.RecordFetchRetry()
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		tx, err := f.client.GetTransaction(ctx, hash)
		if err == nil && tx != nil {
			return tx, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err != nil {
			log.Printf("[fetcher] attempt %d/%d for %s failed: %v", attempt+1, f.attempts, hash, err)
		} else {
			log.Printf("[fetcher] attempt %d/%d for %s: not yet visible", attempt+1, f.attempts, hash)
		}
	}

	return nil, &NotFoundError{Hash: hash}
}
