package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	txMaxAttempts = 4
	txDeadline    = 20 * time.Second
)

// TxFunc runs inside a single Firestore transaction. The function may run
// more than once when the transaction retries on contention, so it must not
// carry side effects outside the transaction's own reads and writes.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// TxOption adjusts retry and deadline behaviour for one transaction.
type TxOption func(*txSettings)

type txSettings struct {
	maxAttempts int
	deadline    time.Duration
}

// WithTxMaxAttempts caps how often a contended transaction is retried before
// the commit is given up.
func WithTxMaxAttempts(n int) TxOption {
	return func(s *txSettings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTxDeadline bounds the whole transaction, retries included. Settlement
// writes sit on the request path; an unbounded commit would hold the caller
// for as long as the backend keeps retrying.
func WithTxDeadline(d time.Duration) TxOption {
	return func(s *txSettings) {
		if d > 0 {
			s.deadline = d
		}
	}
}

func runTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}

	settings := txSettings{maxAttempts: txMaxAttempts, deadline: txDeadline}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}

	// Tighten the context only when the caller's own deadline is looser.
	txCtx := ctx
	if settings.deadline > 0 {
		if existing, ok := ctx.Deadline(); !ok || time.Until(existing) > settings.deadline {
			var cancel context.CancelFunc
			txCtx, cancel = context.WithTimeout(ctx, settings.deadline)
			defer cancel()
		}
	}

	err := client.RunTransaction(txCtx, fn, firestore.MaxAttempts(settings.maxAttempts))
	return WrapError("transaction", err)
}
