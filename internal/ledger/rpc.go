package ledger

import "context"

// RPCClient defines the Solana RPC HTTP calls the liquidator depends on.
type RPCClient interface {
	// GetBalance returns the lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetAccountInfo returns account info, or nil if the account does not exist.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// GetAccountData returns decoded account data, or nil if the account does not exist.
	GetAccountData(ctx context.Context, address string) ([]byte, error)

	// GetLatestBlockhash returns a recent blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetTokenAccountBalance returns the raw amount held by an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (uint64, error)

	// SendAndConfirmTransaction broadcasts a signed transaction and waits for confirmation.
	SendAndConfirmTransaction(ctx context.Context, rawTx []byte, lastValidBlockHeight uint64) (string, error)

	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
