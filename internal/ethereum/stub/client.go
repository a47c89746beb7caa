// Package stub provides a scripted in-memory chain client for tests and
// dry runs.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"sweepwatch/internal/ethereum"
)

// SentTransfer records one SendTransaction call.
type SentTransfer struct {
	Hash     string
	To       string
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
}

// Client implements the watcher's chain client against in-memory state.
type Client struct {
	mu           sync.Mutex
	transactions map[string]*ethereum.Transaction
	balance      *big.Int
	gasPrice     *big.Int
	sends        []SentTransfer
	sendErr      error
	sendSeq      int
}

// NewClient creates a stub client with zero balance and zero gas price.
func NewClient() *Client {
	return &Client{
		transactions: make(map[string]*ethereum.Transaction),
		balance:      new(big.Int),
		gasPrice:     new(big.Int),
	}
}

// AddTransaction adds a transaction to the stub store.
func (c *Client) AddTransaction(tx *ethereum.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions[tx.Hash] = tx
}

// SetBalance sets the balance returned by GetBalance.
func (c *Client) SetBalance(wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = new(big.Int).Set(wei)
}

// SetGasPrice sets the gas price returned by GetGasPrice.
func (c *Client) SetGasPrice(wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gasPrice = new(big.Int).Set(wei)
}

// SetSendError makes subsequent SendTransaction calls fail with err.
func (c *Client) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// Hashes returns the hashes of all scripted transactions.
func (c *Client) Hashes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	hashes := make([]string, 0, len(c.transactions))
	for h := range c.transactions {
		hashes = append(hashes, h)
	}
	return hashes
}

// Sends returns all recorded transfers.
func (c *Client) Sends() []SentTransfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentTransfer, len(c.sends))
	copy(out, c.sends)
	return out
}

// GetTransaction retrieves a scripted transaction as a copy, so callers
// cannot mutate scripted state.
// Missing hashes return (nil, nil), matching the production client.
func (c *Client) GetTransaction(_ context.Context, hash string) (*ethereum.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.transactions[hash]
	if !ok {
		return nil, nil
	}

	txCopy := *tx
	if tx.Value != nil {
		txCopy.Value = new(big.Int).Set(tx.Value)
	}
	if tx.GasPrice != nil {
		txCopy.GasPrice = new(big.Int).Set(tx.GasPrice)
	}
	return &txCopy, nil
}

// GetBalance returns the scripted balance.
func (c *Client) GetBalance(_ context.Context, _ string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balance), nil
}

// GetGasPrice returns the scripted gas price.
func (c *Client) GetGasPrice(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.gasPrice), nil
}

// SubscribePending replays the hashes of all scripted transactions, then
// keeps the feed open until ctx is cancelled.
func (c *Client) SubscribePending(ctx context.Context) (<-chan string, error) {
	hashes := c.Hashes()
	ch := make(chan string, len(hashes))
	for _, h := range hashes {
		ch <- h
	}

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}

// SendTransaction records the transfer and deducts value plus fees from the
// stub balance.
func (c *Client) SendTransaction(_ context.Context, to string, value *big.Int, gasLimit uint64, gasPrice *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return "", c.sendErr
	}

	c.sendSeq++
	hash := fmt.Sprintf("0xstub%064d", c.sendSeq)
	c.sends = append(c.sends, SentTransfer{
		Hash:     hash,
		To:       to,
		Value:    new(big.Int).Set(value),
		GasLimit: gasLimit,
		GasPrice: new(big.Int).Set(gasPrice),
	})

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	spent := new(big.Int).Add(value, fee)
	c.balance.Sub(c.balance, spent)
	if c.balance.Sign() < 0 {
		c.balance.SetInt64(0)
	}

	return hash, nil
}
