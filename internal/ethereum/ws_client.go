package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout is timeout for the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout is how long to wait for subscription confirmation.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      120 * time.Second,
		WriteTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
	}
}

// WSClient subscribes to pending-transaction hashes over a WebSocket
// connection using eth_subscribe.
//
// The client deliberately does not reconnect: queue state is in-memory only,
// so on transport loss the process is expected to exit and be restarted by a
// supervisor with a fresh connection and empty queues. A read failure closes
// every subscription channel; the cause is available via Err.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to hash channel
	subs   map[string]chan string
	subsMu sync.Mutex

	// pendingSubs maps request ID to in-flight subscribe requests
	pendingSubs   map[uint64]*pendingSub
	pendingSubsMu sync.Mutex

	// readErr holds the error that terminated the read loop
	readErr   error
	readErrMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// pendingSub tracks one in-flight eth_subscribe request. The read loop
// registers deliver in subs before confirming, so notifications that arrive
// right behind the confirmation are never dropped.
type pendingSub struct {
	deliver chan string
	outcome chan subscribeOutcome // buffered 1
}

type subscribeOutcome struct {
	subID string
	err   error
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[string]chan string),
		pendingSubs: make(map[uint64]*pendingSub),
		done:        make(chan struct{}),
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// SubscribePending subscribes to new pending transaction hashes.
// The returned channel is closed when the connection drops or the client is
// closed; after an unexpected close, Err reports the cause.
func (c *WSClient) SubscribePending(ctx context.Context) (<-chan string, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"newPendingTransactions"},
	}

	// Large buffer absorbs bursts; the downstream ingest queue does the
	// actual bounding with oldest-eviction.
	ps := &pendingSub{
		deliver: make(chan string, 10000),
		outcome: make(chan subscribeOutcome, 1),
	}
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = ps
	c.pendingSubsMu.Unlock()

	dropPending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()
	if err != nil {
		dropPending()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case out := <-ps.outcome:
		if out.err != nil {
			return nil, fmt.Errorf("subscribe rejected: %w", out.err)
		}
		if out.subID == "" {
			return nil, fmt.Errorf("client closed")
		}
		return ps.deliver, nil
	case <-time.After(c.config.SubscribeTimeout):
		dropPending()
		return nil, fmt.Errorf("subscription timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		dropPending()
		return nil, ctx.Err()
	}
}

// Err returns the error that terminated the read loop, if any.
func (c *WSClient) Err() error {
	c.readErrMu.Lock()
	defer c.readErrMu.Unlock()
	return c.readErr
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	c.connMu.Unlock()

	c.closeChannels()
	c.wg.Wait()
	return nil
}

// closeChannels closes all subscription and pending channels.
func (c *WSClient) closeChannels() {
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ps := range c.pendingSubs {
		close(ps.outcome)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()
}

// fail records a fatal transport error and tears down all subscriptions.
func (c *WSClient) fail(err error) {
	c.readErrMu.Lock()
	if c.readErr == nil {
		c.readErr = err
	}
	c.readErrMu.Unlock()

	c.closeChannels()
}

// readLoop reads messages from the WebSocket and dispatches to subscribers.
// Any read error is terminal.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		c.connMu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.fail(fmt.Errorf("websocket read: %w", err))
			}
			return
		}

		c.handleMessage(message)
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(message []byte) {
	// Try to parse as a subscribe reply first (confirmation or error)
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 && (resp.Result != "" || resp.Error != nil) {
		c.pendingSubsMu.Lock()
		ps, ok := c.pendingSubs[resp.ID]
		if ok {
			delete(c.pendingSubs, resp.ID)
		}
		c.pendingSubsMu.Unlock()

		if !ok {
			return
		}

		if resp.Error != nil {
			ps.outcome <- subscribeOutcome{err: resp.Error}
			return
		}

		// Register before confirming: notifications can follow the
		// confirmation on the very next frame.
		c.subsMu.Lock()
		c.subs[resp.Result] = ps.deliver
		c.subsMu.Unlock()

		ps.outcome <- subscribeOutcome{subID: resp.Result}
		return
	}

	// Try to parse as notification
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "eth_subscription" && notif.Params != nil {
		c.subsMu.Lock()
		ch, ok := c.subs[notif.Params.Subscription]
		c.subsMu.Unlock()

		if ok {
			select {
			case ch <- notif.Params.Result:
			case <-c.done:
			}
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection might be dead, the read loop will surface it
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  string    `json:"result"` // subscription ID
	Error   *rpcError `json:"error,omitempty"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription string `json:"subscription"`
	Result       string `json:"result"` // transaction hash
}
