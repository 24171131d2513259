package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	methodLogsSubscribe        = "logsSubscribe"
	methodTransactionSubscribe = "transactionSubscribe"
	methodLogsNotification     = "logsNotification"
	methodTxNotification       = "transactionNotification"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
	// Logger receives transport diagnostics.
	Logger logrus.FieldLogger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		Logger:            logrus.StandardLogger(),
	}
}

// subscription remembers how to re-create a subscription and where to deliver it.
type subscription struct {
	method string
	params []interface{}
	logs   chan LogNotification
	txs    chan TransactionNotification
}

func (s *subscription) close() {
	if s.logs != nil {
		close(s.logs)
	}
	if s.txs != nil {
		close(s.txs)
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   logrus.FieldLogger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to its delivery target
	subs   map[int64]*subscription
	subsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubscribeTimeout == 0 {
		cfg.SubscribeTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		logger:      cfg.Logger.WithField("component", "ws"),
		subs:        make(map[int64]*subscription),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeLogs subscribes to program logs matching the filter.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = CommitmentConfirmed
	}

	// Buffer absorbs bursts; delivery blocks rather than drops.
	sub := &subscription{
		method: methodLogsSubscribe,
		params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": commitment},
		},
		logs: make(chan LogNotification, 10000),
	}

	if err := c.subscribe(ctx, sub); err != nil {
		return nil, err
	}
	return sub.logs, nil
}

// SubscribeTransactions subscribes to full transactions matching the filter.
// Transactions are requested in "json" encoding so inner instruction data is base58.
func (c *WSClientImpl) SubscribeTransactions(ctx context.Context, filter TransactionFilter) (<-chan TransactionNotification, error) {
	txFilter := map[string]interface{}{}
	if len(filter.AccountInclude) > 0 {
		txFilter["accountInclude"] = filter.AccountInclude
	}
	if len(filter.AccountExclude) > 0 {
		txFilter["accountExclude"] = filter.AccountExclude
	}
	if len(filter.AccountRequired) > 0 {
		txFilter["accountRequired"] = filter.AccountRequired
	}
	if filter.Vote != nil {
		txFilter["vote"] = *filter.Vote
	}
	if filter.Failed != nil {
		txFilter["failed"] = *filter.Failed
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = CommitmentProcessed
	}

	sub := &subscription{
		method: methodTransactionSubscribe,
		params: []interface{}{
			txFilter,
			map[string]interface{}{
				"commitment":                     commitment,
				"encoding":                       "json",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
		txs: make(chan TransactionNotification, 10000),
	}

	if err := c.subscribe(ctx, sub); err != nil {
		return nil, err
	}
	return sub.txs, nil
}

// subscribe sends the subscription request and registers the delivery target.
func (c *WSClientImpl) subscribe(ctx context.Context, sub *subscription) error {
	subID, err := c.request(ctx, sub.method, sub.params)
	if err != nil {
		return err
	}

	c.subsMu.Lock()
	c.subs[subID] = sub
	c.subsMu.Unlock()
	return nil
}

// request writes a subscribe request and waits for the subscription ID.
func (c *WSClientImpl) request(ctx context.Context, method string, params []interface{}) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		c.dropPending(reqID)
		return 0, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.dropPending(reqID)
		return 0, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return 0, fmt.Errorf("client closed")
		}
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		c.dropPending(reqID)
		return 0, fmt.Errorf("%s timeout after %v", method, c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		c.dropPending(reqID)
		return 0, ctx.Err()
	}
}

func (c *WSClientImpl) dropPending(reqID uint64) {
	c.pendingSubsMu.Lock()
	delete(c.pendingSubs, reqID)
	c.pendingSubsMu.Unlock()
}

// Close closes the WebSocket connection and all subscription channels.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Readers must be gone before channels close.
	c.wg.Wait()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		sub.close()
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			c.logger.WithError(err).Warn("read failed, reconnecting")
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Retried on the next read error
		c.logger.WithError(err).Warn("reconnect failed")
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-creates every active subscription after reconnect.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.RLock()
	active := make(map[int64]*subscription, len(c.subs))
	for id, sub := range c.subs {
		active[id] = sub
	}
	c.subsMu.RUnlock()

	for oldSubID, sub := range active {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := c.request(ctx, sub.method, sub.params)
		cancel()

		if err != nil {
			c.logger.WithError(err).WithField("method", sub.method).Warn("resubscribe failed")
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldSubID)
		c.subs[newSubID] = sub
		c.subsMu.Unlock()
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 && resp.ID > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Params != nil {
		switch notif.Method {
		case methodLogsNotification:
			c.handleLogsNotification(&notif)
			return
		case methodTxNotification:
			c.handleTransactionNotification(&notif)
			return
		}
	}

	var errResp struct {
		ID    uint64 `json:"id"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		// The pending subscription times out on its own.
		c.logger.WithFields(logrus.Fields{
			"code": errResp.Error.Code,
			"id":   errResp.ID,
		}).Warn(errResp.Error.Message)
	}
}

// handleSubscribeResponse handles subscription confirmation.
func (c *WSClientImpl) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[resp.ID]
	if ok {
		delete(c.pendingSubs, resp.ID)
	}
	c.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

func (c *WSClientImpl) lookup(subID int64) *subscription {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subs[subID]
}

// handleLogsNotification dispatches log notification to subscriber.
func (c *WSClientImpl) handleLogsNotification(notif *wsNotification) {
	var value wsLogsValue
	if err := json.Unmarshal(notif.Params.Result.Value, &value); err != nil {
		return
	}

	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	sub := c.lookup(notif.Params.Subscription)
	if sub == nil || sub.logs == nil {
		return
	}

	// Never drop events
	select {
	case sub.logs <- logNotif:
	case <-c.done:
	}
}

// handleTransactionNotification dispatches a transaction to its subscriber.
// The result object is the transaction itself, not a context/value pair.
func (c *WSClientImpl) handleTransactionNotification(notif *wsNotification) {
	var result wsTransactionResult
	if err := json.Unmarshal(notif.Params.RawResult, &result); err != nil {
		c.logger.WithError(err).Debug("skip malformed transaction notification")
		return
	}

	txNotif := TransactionNotification{
		Signature: result.Signature,
		Slot:      result.Slot,
	}
	if result.Transaction != nil {
		result.Transaction.Slot = result.Slot
		tx := result.Transaction.ToTransaction()
		if tx.Signature == "" {
			tx.Signature = result.Signature
		}
		txNotif.Transaction = tx
	}

	sub := c.lookup(notif.Params.Subscription)
	if sub == nil || sub.txs == nil {
		return
	}

	select {
	case sub.txs <- txNotif:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A dead connection surfaces as a read error.
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
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
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"-"`
	RawResult    json.RawMessage      `json:"result"`
}

// UnmarshalJSON keeps the raw result and also decodes the context/value form.
func (p *wsNotificationParams) UnmarshalJSON(data []byte) error {
	var raw struct {
		Subscription int64           `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Subscription = raw.Subscription
	p.RawResult = raw.Result
	// Transaction notifications have no context/value wrapper.
	_ = json.Unmarshal(raw.Result, &p.Result)
	return nil
}

type wsNotificationResult struct {
	Context *wsContext      `json:"context"`
	Value   json.RawMessage `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

type wsTransactionResult struct {
	Signature   string          `json:"signature"`
	Slot        int64           `json:"slot"`
	Transaction *RawTransaction `json:"transaction"`
}
