// Package jito submits transaction bundles to a block-engine relay.
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

const (
	DefaultTimeout = 10 * time.Second
	bundlesPath    = "/api/v1/bundles"
)

// ErrEmptyBundle is returned when SendBundle is called without transactions.
var ErrEmptyBundle = errors.New("empty bundle")

// Client is a JSON-RPC client for the relay's bundle endpoint.
type Client struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// NewClient creates a relay client for baseURL. A non-empty uuid is sent as
// the uuid query parameter.
func NewClient(baseURL, uuid string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + bundlesPath)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if uuid != "" {
		q := u.Query()
		q.Set("uuid", uuid)
		u.RawQuery = q.Encode()
	}

	c := &Client{
		endpoint: u.String(),
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result *string   `json:"result"`
	Error  *RPCError `json:"error"`
}

// RPCError is an error reported by the relay.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

// SendBundle submits serialized transactions as one ordered bundle and returns
// the bundle id. An accepted request without an id yields "" and no error.
func (c *Client) SendBundle(ctx context.Context, txs [][]byte) (string, error) {
	if len(txs) == 0 {
		return "", ErrEmptyBundle
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		encoded[i] = base58.Encode(tx)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "sendBundle",
		Params:  []interface{}{encoded},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return "", rpcResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if rpcResp.Result == nil {
		return "", nil
	}
	return *rpcResp.Result, nil
}
