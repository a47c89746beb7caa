package watcher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"sweepwatch/internal/ethereum"
)

// scriptedClient fails GetTransaction a fixed number of times before
// returning a transaction, and records every call.
type scriptedClient struct {
	failures int
	tx       *ethereum.Transaction
	err      error
	calls    int
}

func (c *scriptedClient) GetTransaction(_ context.Context, hash string) (*ethereum.Transaction, error) {
	c.calls++
	if c.calls <= c.failures {
		if c.err != nil {
			return nil, c.err
		}
		return nil, nil
	}
	return c.tx, nil
}

func (c *scriptedClient) GetBalance(context.Context, string) (*big.Int, error) {
	return nil, errors.New("not scripted")
}

func (c *scriptedClient) GetGasPrice(context.Context) (*big.Int, error) {
	return nil, errors.New("not scripted")
}

func (c *scriptedClient) SendTransaction(context.Context, string, *big.Int, uint64, *big.Int) (string, error) {
	return "", errors.New("not scripted")
}

// recordingSleep captures backoff delays instead of sleeping.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestFetcher_SucceedsFirstAttempt(t *testing.T) {
	want := &ethereum.Transaction{Hash: "0xaa", To: "0xbb", Value: big.NewInt(1)}
	client := &scriptedClient{tx: want}

	var delays []time.Duration
	f := NewFetcher(client, WithFetchSleep(recordingSleep(&delays)))

	tx, err := f.Fetch(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tx != want {
		t.Errorf("Fetch returned %+v, want %+v", tx, want)
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want 1", client.calls)
	}
	if len(delays) != 0 {
		t.Errorf("slept %d times on first-attempt success, want 0", len(delays))
	}
}

func TestFetcher_RetriesThenSucceeds(t *testing.T) {
	for _, failures := range []int{1, 2, 3, 4} {
		want := &ethereum.Transaction{Hash: "0xaa"}
		client := &scriptedClient{failures: failures, err: errors.New("rpc down"), tx: want}

		var delays []time.Duration
		f := NewFetcher(client, WithFetchSleep(recordingSleep(&delays)))

		tx, err := f.Fetch(context.Background(), "0xaa")
		if err != nil {
			t.Fatalf("failures=%d: Fetch: %v", failures, err)
		}
		if tx != want {
			t.Errorf("failures=%d: wrong transaction returned", failures)
		}
		if client.calls != failures+1 {
			t.Errorf("failures=%d: client called %d times, want %d", failures, client.calls, failures+1)
		}
		if len(delays) != failures {
			t.Fatalf("failures=%d: slept %d times, want %d", failures, len(delays), failures)
		}
		for i := 1; i < len(delays); i++ {
			if delays[i] <= delays[i-1] {
				t.Errorf("failures=%d: delay %d (%v) not greater than delay %d (%v)",
					failures, i, delays[i], i-1, delays[i-1])
			}
		}
	}
}

func TestFetcher_BackoffDoubles(t *testing.T) {
	client := &scriptedClient{failures: 4, tx: &ethereum.Transaction{Hash: "0xaa"}}

	var delays []time.Duration
	f := NewFetcher(client,
		WithFetchBaseDelay(100*time.Millisecond),
		WithFetchSleep(recordingSleep(&delays)))

	if _, err := f.Fetch(context.Background(), "0xaa"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	if len(delays) != len(want) {
		t.Fatalf("got %d delays, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestFetcher_NotFoundAfterBudget(t *testing.T) {
	client := &scriptedClient{failures: 100} // never succeeds, nil results

	var delays []time.Duration
	f := NewFetcher(client, WithFetchSleep(recordingSleep(&delays)))

	_, err := f.Fetch(context.Background(), "0xdead")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Fetch error = %v, want *NotFoundError", err)
	}
	if nf.Hash != "0xdead" {
		t.Errorf("NotFoundError.Hash = %q, want %q", nf.Hash, "0xdead")
	}
	if client.calls != DefaultFetchAttempts {
		t.Errorf("client called %d times, want %d", client.calls, DefaultFetchAttempts)
	}
}

func TestFetcher_AbsentRecordRetriedLikeError(t *testing.T) {
	// (nil, nil) from the node means "not visible yet", not "give up".
	want := &ethereum.Transaction{Hash: "0xaa"}
	client := &scriptedClient{failures: 2, tx: want} // err nil: absent records

	var delays []time.Duration
	f := NewFetcher(client, WithFetchSleep(recordingSleep(&delays)))

	tx, err := f.Fetch(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tx != want {
		t.Error("wrong transaction returned")
	}
	if client.calls != 3 {
		t.Errorf("client called %d times, want 3", client.calls)
	}
}

func TestFetcher_CancelledContext(t *testing.T) {
	client := &scriptedClient{failures: 100, err: errors.New("rpc down")}

	ctx, cancel := context.WithCancel(context.Background())
	f := NewFetcher(client, WithFetchSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := f.Fetch(ctx, "0xaa")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch error = %v, want context.Canceled", err)
	}
}
