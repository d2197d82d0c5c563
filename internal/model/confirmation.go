package model

import "time"

// ConfirmationRecord is the immutable result of a completed checkout
type ConfirmationRecord struct {
	TransactionID  string        `json:"transaction_id"`
	SessionID      string        `json:"session_id"`
	PledgeSnapshot PledgeContext `json:"pledge"`
	Fee            FeeBreakdown  `json:"fee"`
	ConfirmedAt    time.Time     `json:"confirmed_at"`
}

// DonorEntry is the public view of a confirmed donation on a campaign page
type DonorEntry struct {
	TransactionID string    `json:"transaction_id"`
	Name          string    `json:"name"`
	Amount        int64     `json:"amount"`
	Message       string    `json:"message,omitempty"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}
