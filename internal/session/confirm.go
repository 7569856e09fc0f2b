package session

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapEngine/internal/model"
)

// ReceiptPoller polls for transaction receipts.
type ReceiptPoller interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

const confirmPollInterval = 2 * time.Second

// awaitConfirmation polls for a receipt until the timeout elapses. A timeout
// surfaces as ErrSubmissionTimeout without cancelling the underlying
// transaction; a reverted receipt surfaces as ErrTransactionReverted.
func awaitConfirmation(ctx context.Context, poller ReceiptPoller, txHash common.Hash, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		// A missing receipt and a transient RPC failure are treated the
		// same: keep polling until the deadline.
		receipt, err := poller.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return model.ErrTransactionReverted
		}

		if time.Now().After(deadline) {
			return model.ErrSubmissionTimeout
		}

		timer := time.NewTimer(confirmPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
