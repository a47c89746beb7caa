package watcher

import (
	"context"
	"time"
)

// RateGate paces worker loops. All waits are context-aware so a suspended
// worker never blocks shutdown or its sibling workers.
type RateGate struct{}

// Sleep suspends the caller for d.
func (RateGate) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitUntil suspends the caller until t has passed.
func (g RateGate) WaitUntil(ctx context.Context, t time.Time) error {
	return g.Sleep(ctx, time.Until(t))
}
