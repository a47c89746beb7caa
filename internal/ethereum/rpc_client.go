package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// HTTPClient talks JSON-RPC 2.0 to an Ethereum node over HTTP.
//
// Each call is a single attempt; retry policy belongs to the caller
// (the watcher retries transaction lookups with its own backoff budget).
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64

	// signing account for SendTransaction
	from       string
	passphrase string
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithSigner sets the account and passphrase used for SendTransaction.
// Transfers are submitted via personal_sendTransaction, so the key itself
// stays on the node.
func WithSigner(from, passphrase string) ClientOption {
	return func(c *HTTPClient) {
		c.from = from
		c.passphrase = passphrase
	}
}

// NewHTTPClient creates a new Ethereum JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC call.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// getTransactionResult is the raw RPC response for eth_getTransactionByHash.
type getTransactionResult struct {
	Hash      string  `json:"hash"`
	From      string  `json:"from"`
	To        *string `json:"to"`
	Value     string  `json:"value"`
	Gas       string  `json:"gas"`
	GasPrice  string  `json:"gasPrice"`
	Nonce     string  `json:"nonce"`
	BlockHash *string `json:"blockHash"`
}

// GetTransaction retrieves a transaction by hash.
// Returns (nil, nil) when the node does not know the hash yet; propagation
// lag makes that a routine outcome for fresh pending hashes.
func (c *HTTPClient) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	var result *getTransactionResult
	if err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	value, err := parseQuantity(result.Value)
	if err != nil {
		return nil, fmt.Errorf("transaction %s value: %w", hash, err)
	}

	tx := &Transaction{
		Hash:  result.Hash,
		From:  result.From,
		Value: value,
	}
	if result.To != nil {
		tx.To = *result.To
	}
	if result.BlockHash != nil {
		tx.BlockHash = *result.BlockHash
	}
	if result.Gas != "" {
		if tx.Gas, err = parseUint(result.Gas); err != nil {
			return nil, fmt.Errorf("transaction %s gas: %w", hash, err)
		}
	}
	if result.GasPrice != "" {
		if tx.GasPrice, err = parseQuantity(result.GasPrice); err != nil {
			return nil, fmt.Errorf("transaction %s gasPrice: %w", hash, err)
		}
	}
	if result.Nonce != "" {
		if tx.Nonce, err = parseUint(result.Nonce); err != nil {
			return nil, fmt.Errorf("transaction %s nonce: %w", hash, err)
		}
	}

	return tx, nil
}

// GetBalance retrieves the latest balance of an address in wei.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var result string
	if err := c.call(ctx, "eth_getBalance", []interface{}{address, "latest"}, &result); err != nil {
		return nil, err
	}
	balance, err := parseQuantity(result)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	return balance, nil
}

// GetGasPrice retrieves the current gas price in wei.
func (c *HTTPClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	var result string
	if err := c.call(ctx, "eth_gasPrice", nil, &result); err != nil {
		return nil, err
	}
	price, err := parseQuantity(result)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	return price, nil
}

// sendTxParams is the transaction object for personal_sendTransaction.
type sendTxParams struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// SendTransaction submits a value transfer from the signing account and
// returns the submitted transaction hash.
func (c *HTTPClient) SendTransaction(ctx context.Context, to string, value *big.Int, gasLimit uint64, gasPrice *big.Int) (string, error) {
	if c.from == "" {
		return "", fmt.Errorf("no signing account configured")
	}

	params := []interface{}{
		sendTxParams{
			From:     c.from,
			To:       to,
			Value:    formatQuantity(value),
			Gas:      formatUint(gasLimit),
			GasPrice: formatQuantity(gasPrice),
		},
		c.passphrase,
	}

	var hash string
	if err := c.call(ctx, "personal_sendTransaction", params, &hash); err != nil {
		return "", err
	}
	return hash, nil
}
