package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pumpfun-liquidator/internal/ledger"
)

// ErrNotFound is returned when a transaction or account is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements ledger.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Balances      map[string]uint64
	TokenBalances map[string]uint64
	Accounts      map[string][]byte
	Transactions  map[string]*ledger.Transaction
	Blockhash     ledger.Blockhash

	// Err, when set, fails every call.
	Err error
	// SendErr fails SendAndConfirmTransaction only.
	SendErr error

	// Sent records every submitted raw transaction.
	Sent [][]byte
	// BlockhashCalls counts GetLatestBlockhash calls.
	BlockhashCalls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		TokenBalances: make(map[string]uint64),
		Accounts:      make(map[string][]byte),
		Transactions:  make(map[string]*ledger.Transaction),
		Blockhash: ledger.Blockhash{
			Hash:                 "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			LastValidBlockHeight: 1000,
		},
	}
}

// GetBalance returns the stored balance, zero if unknown.
func (c *RPCClient) GetBalance(_ context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Balances[address], nil
}

// GetAccountInfo returns info for a stored account, nil if unknown.
func (c *RPCClient) GetAccountInfo(_ context.Context, address string) (*ledger.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if _, ok := c.Accounts[address]; !ok {
		return nil, nil
	}
	return &ledger.AccountInfo{Lamports: c.Balances[address]}, nil
}

// GetAccountData returns stored account data, nil if unknown.
func (c *RPCClient) GetAccountData(_ context.Context, address string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[address], nil
}

// GetLatestBlockhash returns the configured blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*ledger.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BlockhashCalls++
	if c.Err != nil {
		return nil, c.Err
	}
	bh := c.Blockhash
	return &bh, nil
}

// GetTokenAccountBalance returns the stored token balance.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	amount, ok := c.TokenBalances[account]
	if !ok {
		return 0, fmt.Errorf("token account %s: %w", account, ErrNotFound)
	}
	return amount, nil
}

// SendAndConfirmTransaction records rawTx and returns a synthetic signature.
func (c *RPCClient) SendAndConfirmTransaction(_ context.Context, rawTx []byte, _ uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, append([]byte(nil), rawTx...))
	return fmt.Sprintf("stub-signature-%d", len(c.Sent)), nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*ledger.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *ledger.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// AddAccount stores account data, making the account exist.
func (c *RPCClient) AddAccount(address string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[address] = data
}

// SentCount returns how many transactions were submitted.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

var _ ledger.RPCClient = (*RPCClient)(nil)
