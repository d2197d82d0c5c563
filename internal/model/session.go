package model

import "time"

// SessionStatus tracks a payment session through confirmation
type SessionStatus string

const (
	SessionAwaitingPayment SessionStatus = "awaiting-payment"
	SessionConfirming      SessionStatus = "confirming"
	SessionConfirmed       SessionStatus = "confirmed"
	SessionExpired         SessionStatus = "expired"
)

// FeeBreakdown is derived from a pledge amount and never stored on its own
type FeeBreakdown struct {
	Amount   int64 `json:"amount"`
	AdminFee int64 `json:"admin_fee"`
	Total    int64 `json:"total"`
}

// SettlementOption is one account the donor can pay into
type SettlementOption struct {
	ChannelLabel      string `json:"channel_label"`
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
}

// PaymentSession is the time-bounded window in which payment instructions are valid
type PaymentSession struct {
	ID                string             `json:"id"`
	CampaignID        string             `json:"campaign_id"`
	Total             int64              `json:"total"`
	Method            PaymentMethod      `json:"method"`
	Status            SessionStatus      `json:"status"`
	SettlementOptions []SettlementOption `json:"settlement_options"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
}

// ExpiredAt reports whether the session window has closed at now
func (s PaymentSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
