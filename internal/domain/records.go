// Package domain holds the records persisted by the optional detection
// archive and sweep ledger.
package domain

import "time"

// DetectionEvent is one observed incoming transfer to the watched account.
type DetectionEvent struct {
	TxHash     string
	Sender     string
	Recipient  string
	ValueWei   string // decimal wei, stored as string to survive any driver
	ObservedAt time.Time
}

// SweepStatus is the outcome of one sweep submission.
type SweepStatus string

const (
	// SweepSubmitted means the node accepted the transfer.
	SweepSubmitted SweepStatus = "SUBMITTED"
	// SweepFailed means submission failed; the trigger was discarded and the
	// next detection retries against fresh balance.
	SweepFailed SweepStatus = "FAILED"
)

// SweepRecord is one sweep attempt, successful or not.
type SweepRecord struct {
	SweepHash   string // empty when submission failed
	TriggerHash string
	AmountWei   string
	GasPriceWei string
	Status      SweepStatus
	Error       string
	SubmittedAt time.Time
}
