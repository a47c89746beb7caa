// Package watcher implements the pending-transaction monitoring and
// fund-sweeping pipeline: a bounded ingest queue fed by a live subscription,
// a detection worker that resolves hashes and filters by recipient, and a
// sweep worker that moves the watched account's balance to a destination
// account as soon as funds show up.
package watcher

import (
	"context"
	"math/big"

	"sweepwatch/internal/ethereum"
)

// ChainClient is the set of node operations the pipeline consumes.
// Implemented by ethereum.HTTPClient in production and by the stub in tests.
type ChainClient interface {
	// GetTransaction resolves a transaction by hash.
	// Returns (nil, nil) when the node does not know the hash.
	GetTransaction(ctx context.Context, hash string) (*ethereum.Transaction, error)

	// GetBalance returns the current balance of an address in wei.
	GetBalance(ctx context.Context, address string) (*big.Int, error)

	// GetGasPrice returns the current gas price in wei.
	GetGasPrice(ctx context.Context) (*big.Int, error)

	// SendTransaction submits a value transfer and returns its hash.
	SendTransaction(ctx context.Context, to string, value *big.Int, gasLimit uint64, gasPrice *big.Int) (string, error)
}

// PendingSource supplies a live feed of pending-transaction hashes.
// The channel closing means the underlying transport is gone; the pipeline
// treats that as fatal rather than reconnecting.
type PendingSource interface {
	SubscribePending(ctx context.Context) (<-chan string, error)
}
