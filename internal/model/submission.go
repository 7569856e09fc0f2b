package model

import "time"

// SubmissionStatus is the lifecycle state of a submitted transaction.
type SubmissionStatus string

const (
	StatusPending SubmissionStatus = "pending"
	StatusSuccess SubmissionStatus = "success"
	StatusFailed  SubmissionStatus = "failed"
)

// PendingSubmission tracks one submitted transaction. It transitions exactly
// once from pending to success or failed, driven by confirmation polling or
// the submission timeout.
type PendingSubmission struct {
	TxID        string           `json:"tx_id"`
	Label       string           `json:"label"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Status      SubmissionStatus `json:"status"`
}
