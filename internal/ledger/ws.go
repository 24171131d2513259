package ledger

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// SubscribeTransactions subscribes to full transactions matching the filter.
	SubscribeTransactions(ctx context.Context, filter TransactionFilter) (<-chan TransactionNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
	// Commitment defaults to confirmed.
	Commitment string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// TransactionFilter selects transactions by the accounts they touch.
type TransactionFilter struct {
	// AccountInclude matches transactions touching any of these accounts.
	AccountInclude []string
	// AccountExclude drops transactions touching any of these accounts.
	AccountExclude []string
	// AccountRequired matches transactions touching all of these accounts.
	AccountRequired []string
	// Vote and Failed are forwarded when set.
	Vote   *bool
	Failed *bool
	// Commitment defaults to processed.
	Commitment string
}

// TransactionNotification carries one transaction update.
type TransactionNotification struct {
	Signature   string
	Slot        int64
	Transaction *Transaction
}
