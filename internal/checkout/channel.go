package checkout

import "doneasy-checkout/internal/model"

// Channel is a payment method resolved to concrete settlement instructions
type Channel struct {
	Method            model.PaymentMethod      `json:"method"`
	Label             string                   `json:"label"`
	Description       string                   `json:"description"`
	SettlementOptions []model.SettlementOption `json:"settlement_options"`
	Unavailable       bool                     `json:"unavailable"`
}

// ChannelResolver maps payment methods to their settlement instructions
type ChannelResolver struct {
	channels map[model.PaymentMethod]Channel
}

// NewChannelResolver creates a resolver over the given channels
func NewChannelResolver(channels []Channel) *ChannelResolver {
	r := &ChannelResolver{channels: make(map[model.PaymentMethod]Channel, len(channels))}
	for _, ch := range channels {
		r.channels[ch.Method] = ch
	}
	return r
}

// DefaultChannels are the foundation's accounts per method
func DefaultChannels() []Channel {
	return []Channel{
		{
			Method:      model.PaymentMethodBankTransfer,
			Label:       "Transfer Bank",
			Description: "Transfer ke salah satu rekening berikut",
			SettlementOptions: []model.SettlementOption{
				{ChannelLabel: "BCA", AccountNumber: "1234567890", AccountHolderName: "Yayasan Doneasy Indonesia"},
				{ChannelLabel: "Mandiri", AccountNumber: "0987654321", AccountHolderName: "Yayasan Doneasy Indonesia"},
			},
		},
		{
			Method:      model.PaymentMethodEWallet,
			Label:       "E-Wallet",
			Description: "Kirim ke salah satu akun e-wallet berikut",
			SettlementOptions: []model.SettlementOption{
				{ChannelLabel: "GoPay", AccountNumber: "081234567890", AccountHolderName: "Doneasy"},
				{ChannelLabel: "OVO", AccountNumber: "081234567890", AccountHolderName: "Doneasy"},
				{ChannelLabel: "DANA", AccountNumber: "081234567890", AccountHolderName: "Doneasy"},
			},
		},
		{
			Method:      model.PaymentMethodCard,
			Label:       "Kartu Kredit/Debit",
			Description: "Pembayaran kartu kredit/debit akan segera tersedia",
			Unavailable: true,
		},
	}
}

// Resolve returns the channel for method. Methods without configured
// instructions resolve to an unavailable channel with no options.
func (r *ChannelResolver) Resolve(method model.PaymentMethod) Channel {
	ch, ok := r.channels[method]
	if !ok {
		return Channel{Method: method, Label: string(method), Unavailable: true}
	}
	options := make([]model.SettlementOption, len(ch.SettlementOptions))
	copy(options, ch.SettlementOptions)
	ch.SettlementOptions = options
	if len(options) == 0 {
		ch.Unavailable = true
	}
	return ch
}
