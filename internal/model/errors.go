package model

import "errors"

var (
	// ErrPoolKeyUnavailable means the pool key could not be resolved; quoting
	// for the pair is disabled rather than retried indefinitely.
	ErrPoolKeyUnavailable = errors.New("pool key unavailable")

	// ErrQuoteReverted means the read-only quote simulation reverted. Callers
	// recover with a conservative fallback where one exists.
	ErrQuoteReverted = errors.New("quote simulation reverted")

	// ErrUserRejected means the signer declined to sign. The form returns to
	// an editable state; no retry is attempted.
	ErrUserRejected = errors.New("user rejected signature")

	// ErrSubmissionTimeout means the transaction was not confirmed within the
	// submission timeout. The underlying transaction is not cancelled.
	ErrSubmissionTimeout = errors.New("submission not confirmed in time")

	// ErrTransactionReverted means the transaction executed and reverted.
	// Never retried automatically.
	ErrTransactionReverted = errors.New("transaction reverted")
)
