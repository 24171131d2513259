package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"pumpfun-liquidator/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 1 * time.Second
	DefaultMaxDelay        = 10 * time.Second
	DefaultBackoffMult     = 2.0
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultConfirmInterval = 500 * time.Millisecond
)

// ErrBlockhashExpired is returned when a transaction was not confirmed before
// its blockhash left the validity window.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint        string
	client          *http.Client
	maxRetries      int
	retryDelay      time.Duration
	maxDelay        time.Duration
	backoffMult     float64
	commitment      string
	confirmTimeout  time.Duration
	confirmInterval time.Duration
	requestID       atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCommitment sets the commitment used for reads.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// WithConfirmTimeout bounds how long SendAndConfirmTransaction polls.
func WithConfirmTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.confirmTimeout = d
	}
}

// WithConfirmInterval sets the signature status polling interval.
func WithConfirmInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.confirmInterval = d
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:        endpoint,
		client:          &http.Client{Timeout: DefaultTimeout},
		maxRetries:      DefaultMaxRetries,
		retryDelay:      DefaultRetryDelay,
		maxDelay:        DefaultMaxDelay,
		backoffMult:     DefaultBackoffMult,
		commitment:      CommitmentConfirmed,
		confirmTimeout:  DefaultConfirmTimeout,
		confirmInterval: DefaultConfirmInterval,
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
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		// RPC errors are not retried
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

	if c.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetBalance returns the lamport balance of an address.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	params := []interface{}{
		address,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetAccountData returns the decoded data of an account, or nil if it does not exist.
func (c *HTTPClient) GetAccountData(ctx context.Context, pubkey string) ([]byte, error) {
	info, err := c.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return data, nil
}

// GetLatestBlockhash returns a recent blockhash.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}
	if result.Value.Blockhash == "" {
		return nil, fmt.Errorf("empty blockhash in response")
	}

	return &Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetTokenAccountBalance returns the raw amount held by an SPL token account.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, account string) (uint64, error) {
	params := []interface{}{
		account,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals int    `json:"decimals"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return 0, err
	}

	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// GetBlockHeight returns the current block height.
func (c *HTTPClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}

	var result uint64
	if err := c.call(ctx, "getBlockHeight", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// SendTransaction broadcasts a serialized signed transaction and returns its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, rawTx []byte) (string, error) {
	params := []interface{}{
		base64.StdEncoding.EncodeToString(rawTx),
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// GetSignatureStatuses returns the status of each signature; unknown signatures are nil.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{
		signatures,
		map[string]interface{}{"searchTransactionHistory": false},
	}

	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// SendAndConfirmTransaction broadcasts a transaction and polls its status until it is
// confirmed, fails on chain, or its blockhash expires. lastValidBlockHeight of 0
// disables the expiry check.
func (c *HTTPClient) SendAndConfirmTransaction(ctx context.Context, rawTx []byte, lastValidBlockHeight uint64) (string, error) {
	signature, err := c.SendTransaction(ctx, rawTx)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return signature, fmt.Errorf("confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}

		statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			return signature, fmt.Errorf("get signature status: %w", err)
		}
		if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return signature, fmt.Errorf("transaction %s failed: %v", signature, status.Err)
			}
			if status.Confirmed() {
				return signature, nil
			}
		}

		if lastValidBlockHeight > 0 {
			height, err := c.GetBlockHeight(ctx)
			if err != nil {
				return signature, fmt.Errorf("get block height: %w", err)
			}
			if height > lastValidBlockHeight {
				return signature, fmt.Errorf("%s: %w", signature, ErrBlockhashExpired)
			}
		}
	}
}

// GetTransaction retrieves a transaction by signature with inner instructions.
// Returns nil if the transaction is not found.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	commitment := c.commitment
	if commitment == CommitmentProcessed {
		// getTransaction does not accept processed
		commitment = CommitmentConfirmed
	}
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *RawTransaction
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	tx := result.ToTransaction()
	tx.Signature = signature
	return tx, nil
}

// RawTransaction is the "json" encoded transaction shape shared by getTransaction
// and transaction subscriptions.
type RawTransaction struct {
	Slot        int64          `json:"slot"`
	BlockTime   *int64         `json:"blockTime"`
	Meta        *rawMeta       `json:"meta"`
	Transaction *rawTxEnvelope `json:"transaction"`
}

type rawMeta struct {
	Err               interface{}         `json:"err"`
	LogMessages       []string            `json:"logMessages"`
	InnerInstructions []InnerInstructions `json:"innerInstructions"`
	LoadedAddresses   *struct {
		Writable []string `json:"writable"`
		Readonly []string `json:"readonly"`
	} `json:"loadedAddresses"`
}

type rawTxEnvelope struct {
	Signatures []string `json:"signatures"`
	Message    *struct {
		AccountKeys []string `json:"accountKeys"`
	} `json:"message"`
}

// ToTransaction converts the wire shape into a Transaction.
func (r *RawTransaction) ToTransaction() *Transaction {
	tx := &Transaction{Slot: r.Slot}
	if r.BlockTime != nil {
		tx.BlockTime = *r.BlockTime
	}

	if r.Transaction != nil {
		if len(r.Transaction.Signatures) > 0 {
			tx.Signature = r.Transaction.Signatures[0]
		}
		if r.Transaction.Message != nil {
			tx.AccountKeys = append(tx.AccountKeys, r.Transaction.Message.AccountKeys...)
		}
	}

	if r.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:               r.Meta.Err,
			LogMessages:       r.Meta.LogMessages,
			InnerInstructions: r.Meta.InnerInstructions,
		}
		if r.Meta.LoadedAddresses != nil {
			tx.AccountKeys = append(tx.AccountKeys, r.Meta.LoadedAddresses.Writable...)
			tx.AccountKeys = append(tx.AccountKeys, r.Meta.LoadedAddresses.Readonly...)
		}
	}

	return tx
}
