package model

import "time"

// VerificationRequest is posted to the payment verification endpoint
type VerificationRequest struct {
	SessionID  string        `json:"session_id"`
	CampaignID string        `json:"campaign_id"`
	Method     PaymentMethod `json:"method"`
	Total      int64         `json:"total"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// VerificationResponse represents response from the verification endpoint
type VerificationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
