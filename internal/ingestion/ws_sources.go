package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pumpfun-liquidator/internal/ledger"
	"pumpfun-liquidator/internal/pumpfun"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// TransactionSubscriber opens transactionSubscribe streams.
type TransactionSubscriber interface {
	SubscribeTransactions(ctx context.Context, filter ledger.TransactionFilter) (<-chan ledger.TransactionNotification, error)
}

// LogsSubscriber opens logsSubscribe streams.
type LogsSubscriber interface {
	SubscribeLogs(ctx context.Context, filter ledger.LogsFilter) (<-chan ledger.LogNotification, error)
}

// TransactionFetcher fetches a confirmed transaction.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, signature string) (*ledger.Transaction, error)
}

// retryGetTransaction fetches a transaction with exponential backoff retry.
// A freshly streamed signature may not be queryable yet.
func retryGetTransaction(ctx context.Context, rpc TransactionFetcher, signature string, baseDelay time.Duration, logger logrus.FieldLogger) (*ledger.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, err := rpc.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err == nil {
			err = fmt.Errorf("transaction %s not available", signature)
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// 500ms, 1s, 2s by default
		delay := baseDelay * time.Duration(1<<attempt)
		logger.WithError(err).WithFields(logrus.Fields{
			"signature": signature,
			"attempt":   attempt + 1,
			"delay":     delay,
		}).Debug("retry getTransaction")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// WSTransactionSource streams full transactions touching the mint through
// transactionSubscribe.
type WSTransactionSource struct {
	ws     TransactionSubscriber
	filter ledger.TransactionFilter
	logger logrus.FieldLogger
}

// NewWSTransactionSource creates a source for transactions that touch mint and
// invoke the bonding-curve program. Vote and failed transactions are excluded.
func NewWSTransactionSource(ws TransactionSubscriber, mint string, commitment string, logger logrus.FieldLogger) *WSTransactionSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	vote, failed := false, false
	return &WSTransactionSource{
		ws: ws,
		filter: ledger.TransactionFilter{
			AccountInclude:  []string{mint},
			AccountRequired: []string{pumpfun.ProgramID.String()},
			Vote:            &vote,
			Failed:          &failed,
			Commitment:      commitment,
		},
		logger: logger.WithField("source", "transactions"),
	}
}

// Filter returns the subscription filter.
func (s *WSTransactionSource) Filter() ledger.TransactionFilter {
	return s.filter
}

// Subscribe returns a channel of transaction updates.
func (s *WSTransactionSource) Subscribe(ctx context.Context) (<-chan Update, error) {
	txCh, err := s.ws.SubscribeTransactions(ctx, s.filter)
	if err != nil {
		return nil, fmt.Errorf("subscribe transactions: %w", err)
	}
	s.logger.WithField("include", s.filter.AccountInclude).Info("subscribed")

	updates := make(chan Update, 100)
	go func() {
		defer close(updates)
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-txCh:
				if !ok {
					s.logger.Info("transaction stream closed")
					return
				}
				u := Update{
					Slot:        notif.Slot,
					Signature:   notif.Signature,
					Transaction: notif.Transaction,
				}
				select {
				case updates <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}

// WSLogsSource is the fallback for providers without transactionSubscribe:
// it follows program logs and fetches each transaction for its inner
// instructions.
type WSLogsSource struct {
	ws         LogsSubscriber
	rpc        TransactionFetcher
	program    string
	commitment string
	retryDelay time.Duration
	logger     logrus.FieldLogger
}

// NewWSLogsSource creates a logs-based source for the bonding-curve program.
func NewWSLogsSource(ws LogsSubscriber, rpc TransactionFetcher, commitment string, logger logrus.FieldLogger) *WSLogsSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WSLogsSource{
		ws:         ws,
		rpc:        rpc,
		program:    pumpfun.ProgramID.String(),
		commitment: commitment,
		retryDelay: baseRetryDelay,
		logger:     logger.WithField("source", "logs"),
	}
}

// Subscribe returns a channel of transaction updates. Failed transactions are
// skipped; a fetch failure is delivered as an Update carrying the error.
func (s *WSLogsSource) Subscribe(ctx context.Context) (<-chan Update, error) {
	logsCh, err := s.ws.SubscribeLogs(ctx, ledger.LogsFilter{
		Mentions:   []string{s.program},
		Commitment: s.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe logs: %w", err)
	}
	s.logger.WithField("program", s.program).Info("subscribed")

	updates := make(chan Update, 100)
	go func() {
		defer close(updates)
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-logsCh:
				if !ok {
					s.logger.Info("logs stream closed")
					return
				}
				if notif.Err != nil {
					continue
				}

				u := Update{Slot: notif.Slot, Signature: notif.Signature}
				tx, err := retryGetTransaction(ctx, s.rpc, notif.Signature, s.retryDelay, s.logger)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					u.Err = fmt.Errorf("get transaction %s: %w", notif.Signature, err)
				} else {
					u.Transaction = tx
				}

				select {
				case updates <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return updates, nil
}
