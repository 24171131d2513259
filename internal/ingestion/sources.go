// Package ingestion consumes the transaction stream for one mint, keeps the
// latest observed price and drives the sell decision and execution.
package ingestion

import (
	"context"

	"pumpfun-liquidator/internal/ledger"
)

// Update is one stream envelope. Transaction is nil for updates without a
// transaction payload; Err carries a transport error reported in-band.
type Update struct {
	Slot        int64
	Signature   string
	Transaction *ledger.Transaction
	Err         error
}

// Kind labels the update for metrics and logs.
func (u Update) Kind() string {
	switch {
	case u.Err != nil:
		return "error"
	case u.Transaction != nil:
		return "transaction"
	default:
		return "empty"
	}
}

// UpdateSource provides the live update stream.
type UpdateSource interface {
	// Subscribe opens the stream. The channel is closed when the stream ends
	// or ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan Update, error)
}
