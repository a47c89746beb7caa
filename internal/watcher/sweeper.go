package watcher

import (
	"context"
	"log"
	"math/big"
	"sync/atomic"
	"time"

	"sweepwatch/internal/domain"
	"sweepwatch/internal/observability"
	"sweepwatch/internal/storage"
)

// SweepGasLimit is the gas ceiling of a plain value transfer.
const SweepGasLimit = 21000

// DefaultSweepItemDelay is the pause after each sweep attempt.
const DefaultSweepItemDelay = time.Second

// DefaultDustThreshold is 0.0001 ETH in wei. Balances at or below it are not
// worth a transfer.
var DefaultDustThreshold = big.NewInt(100_000_000_000_000)

// Sweeper drains the trigger queue, moving the watched account's balance to
// the destination account. Each iteration reads the live balance and gas
// price: queued triggers only decide when to attempt a sweep, never how much
// to send. Same single-goroutine single-flight discipline as Detector.
type Sweeper struct {
	triggers    *Queue
	client      ChainClient
	watched     string
	destination string

	dust      *big.Int
	itemDelay time.Duration
	gate      RateGate
	clock     func() time.Time

	wake        chan struct{}
	cycleStarts atomic.Uint64

	ledger storage.SweepStore // optional, best-effort
}

// SweeperOption configures Sweeper.
type SweeperOption func(*Sweeper)

// WithDustThreshold sets the minimum balance worth sweeping, in wei.
func WithDustThreshold(wei *big.Int) SweeperOption {
	return func(s *Sweeper) {
		s.dust = new(big.Int).Set(wei)
	}
}

// WithSweepItemDelay sets the pause after each sweep attempt.
func WithSweepItemDelay(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.itemDelay = d
	}
}

// WithSweepClock sets a custom clock, for deterministic tests.
func WithSweepClock(clock func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.clock = clock
	}
}

// WithSweepStore records every sweep attempt in store.
func WithSweepStore(store storage.SweepStore) SweeperOption {
	return func(s *Sweeper) {
		s.ledger = store
	}
}

// NewSweeper creates a sweep worker for the watched account.
func NewSweeper(triggers *Queue, client ChainClient, watched, destination string, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		triggers:    triggers,
		client:      client,
		watched:     watched,
		destination: destination,
		dust:        new(big.Int).Set(DefaultDustThreshold),
		itemDelay:   DefaultSweepItemDelay,
		clock:       time.Now,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signal asks the worker to drain the trigger queue. Never blocks, idempotent
// while a wake token is pending.
func (s *Sweeper) Signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// CycleStarts returns how many drain cycles have started.
func (s *Sweeper) CycleStarts() uint64 {
	return s.cycleStarts.Load()
}

// Run processes wake signals until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
		if err := s.drain(ctx); err != nil {
			return err
		}
	}
}

// drain attempts one sweep per queued trigger. The loop exits early once the
// balance cannot cover dust or fees; remaining triggers stay queued and the
// next detection re-activates the worker against the then-current balance.
func (s *Sweeper) drain(ctx context.Context) error {
	s.cycleStarts.Add(1)
	observability.RecordSweeperCycle()

	for s.triggers.Len() > 0 {
		balance, err := s.client.GetBalance(ctx, s.watched)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[sweeper] read balance: %v", err)
			return nil
		}
		gasPrice, err := s.client.GetGasPrice(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[sweeper] read gas price: %v", err)
			return nil
		}

		if balance.Cmp(s.dust) <= 0 {
			log.Printf("[sweeper] balance %s wei at or below dust threshold %s, waiting for next detection", balance, s.dust)
			return nil
		}

		fee := new(big.Int).Mul(gasPrice, big.NewInt(SweepGasLimit))
		amount := new(big.Int).Sub(balance, fee)
		if amount.Sign() <= 0 {
			log.Printf("[sweeper] balance %s wei cannot cover fee %s wei, waiting for next detection", balance, fee)
			return nil
		}

		trigger, _ := s.triggers.Front()
		hash, err := s.client.SendTransaction(ctx, s.destination, amount, SweepGasLimit, gasPrice)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Discard the trigger: the next detection retries against
			// the then-current balance.
			log.Printf("[sweeper] submit transfer of %s wei: %v", amount, err)
			observability.RecordSweepError()
			s.record(ctx, domain.SweepFailed, "", trigger, amount, gasPrice, err)
		} else {
			log.Printf("[sweeper] swept %s wei to %s: %s", amount, s.destination, hash)
			observability.RecordSweepSubmitted()
			s.record(ctx, domain.SweepSubmitted, hash, trigger, amount, gasPrice, nil)
		}

		// The queue counts opportunities seen, not transfers owed: pop
		// whatever the submission outcome was.
		s.triggers.Pop()
		observability.SetSweepQueueDepth(s.triggers.Len())

		if err := s.gate.Sleep(ctx, s.itemDelay); err != nil {
			return err
		}
	}

	return nil
}

// record writes a sweep attempt to the ledger, if one is configured.
func (s *Sweeper) record(ctx context.Context, status domain.SweepStatus, sweepHash, trigger string, amount, gasPrice *big.Int, sendErr error) {
	if s.ledger == nil {
		return
	}
	rec := &domain.SweepRecord{
		SweepHash:   sweepHash,
		TriggerHash: trigger,
		AmountWei:   amount.String(),
		GasPriceWei: gasPrice.String(),
		Status:      status,
		SubmittedAt: s.clock().UTC(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	if err := s.ledger.Insert(ctx, rec); err != nil {
		log.Printf("[sweeper] record sweep attempt: %v", err)
	}
}
