package model

import "strings"

// AnonymousDisplayName replaces the donor name wherever an anonymous donation is shown
const AnonymousDisplayName = "Hamba Allah"

// PaymentMethod is the settlement channel chosen on the amount stage
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
	PaymentMethodEWallet      PaymentMethod = "e-wallet"
	PaymentMethodCard         PaymentMethod = "card"
)

// PaymentMethods lists the supported methods in display order
var PaymentMethods = []PaymentMethod{
	PaymentMethodBankTransfer,
	PaymentMethodEWallet,
	PaymentMethodCard,
}

// Valid reports whether m is one of the supported methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodEWallet, PaymentMethodCard:
		return true
	}
	return false
}

// Seed is what the campaign detail page hands to the checkout
type Seed struct {
	CampaignID    string `json:"campaign_id"`
	CampaignTitle string `json:"campaign_title"`
	Amount        int64  `json:"amount,omitempty"`
}

// PledgeContext is the working draft of a donation before confirmation
type PledgeContext struct {
	CampaignID    string        `json:"campaign_id"`
	CampaignTitle string        `json:"campaign_title"`
	Amount        int64         `json:"amount"`
	DonorName     string        `json:"donor_name"`
	DonorEmail    string        `json:"donor_email,omitempty"`
	Message       string        `json:"message,omitempty"`
	IsAnonymous   bool          `json:"is_anonymous"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// DisplayName returns the name to show publicly for this pledge
func (p PledgeContext) DisplayName() string {
	if p.IsAnonymous {
		return AnonymousDisplayName
	}
	return strings.TrimSpace(p.DonorName)
}
