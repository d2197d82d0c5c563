package handler

import (
	"time"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/service"
)

// summaryAnonymousName is shown in the pre-payment summary for anonymous pledges
const summaryAnonymousName = "Anonim"

// CheckoutView is the JSON rendering of a checkout state
type CheckoutView struct {
	ID       string        `json:"id"`
	Step     checkout.Step `json:"step"`
	Form     *FormView     `json:"form,omitempty"`
	Summary  *SummaryView  `json:"summary,omitempty"`
	Payment  *PaymentView  `json:"payment,omitempty"`
	Receipt  *ReceiptView  `json:"receipt,omitempty"`
	Expired  *ExpiredView  `json:"expired,omitempty"`
	Terminal bool          `json:"terminal"`
}

// FormView renders the amount and donor stages
type FormView struct {
	CampaignID    string                `json:"campaign_id"`
	CampaignTitle string                `json:"campaign_title"`
	Stage         checkout.FormStage    `json:"stage"`
	PresetAmounts []int64               `json:"preset_amounts"`
	PresetAmount  int64                 `json:"preset_amount,omitempty"`
	CustomAmount  string                `json:"custom_amount,omitempty"`
	MinAmount     int64                 `json:"min_amount"`
	MaxAmount     int64                 `json:"max_amount,omitempty"`
	PaymentMethod model.PaymentMethod   `json:"payment_method"`
	Methods       []MethodView          `json:"methods"`
	Donor         checkout.DonorDetails `json:"donor"`
	CanAdvance    bool                  `json:"can_advance"`
	Summary       SummaryView           `json:"summary"`
}

// MethodView is one selectable payment method
type MethodView struct {
	Method      model.PaymentMethod `json:"method"`
	Label       string              `json:"label"`
	Description string              `json:"description"`
	Unavailable bool                `json:"unavailable"`
}

// SummaryView is the fee breakdown as shown to the donor
type SummaryView struct {
	Fee           model.FeeBreakdown `json:"fee"`
	AmountText    string             `json:"amount_text"`
	AdminFeeText  string             `json:"admin_fee_text"`
	TotalText     string             `json:"total_text"`
	DonorDisplay  string             `json:"donor_display,omitempty"`
	PaymentMethod string             `json:"payment_method"`
}

// PaymentView renders the payment and confirming steps
type PaymentView struct {
	Session          model.PaymentSession `json:"session"`
	Channel          checkout.Channel     `json:"channel"`
	RemainingSeconds int64                `json:"remaining_seconds"`
	RemainingText    string               `json:"remaining_text"`
	Verifying        bool                 `json:"verifying"`
	Notice           string               `json:"notice,omitempty"`
}

// ReceiptView renders a confirmation
type ReceiptView struct {
	Record       model.ConfirmationRecord `json:"record"`
	DonorDisplay string                   `json:"donor_display"`
	TotalText    string                   `json:"total_text"`
	ConfirmedAt  string                   `json:"confirmed_at_text"`
	Text         string                   `json:"text"`
}

// ExpiredView renders an expired session
type ExpiredView struct {
	SessionID string    `json:"session_id"`
	ExpiredAt time.Time `json:"expired_at"`
	Amount    int64     `json:"amount"`
}

// RenderView builds the view of state s for checkout id
func RenderView(id string, s checkout.State, m *checkout.Machine) CheckoutView {
	v := CheckoutView{ID: id, Step: s.Step(), Terminal: checkout.Terminal(s)}

	switch st := s.(type) {
	case checkout.FormStep:
		v.Form = renderForm(st.Form, m)
	case checkout.PaymentStep:
		summary := renderSummary(st.Pledge, st.Fee)
		v.Summary = &summary
		v.Payment = renderPayment(st.Session, st.Channel, st.Remaining, false, st.Notice, m)
	case checkout.ConfirmingStep:
		summary := renderSummary(st.Pledge, st.Fee)
		v.Summary = &summary
		v.Payment = renderPayment(st.Session, st.Channel, st.Remaining, true, "", m)
	case checkout.SuccessStep:
		receipt := RenderReceipt(st.Record)
		v.Receipt = &receipt
	case checkout.ExpiredStep:
		v.Expired = &ExpiredView{
			SessionID: st.Session.ID,
			ExpiredAt: st.Session.ExpiresAt,
			Amount:    st.Pledge.Amount,
		}
	}
	return v
}

// RenderReceipt renders a stored or freshly emitted confirmation
func RenderReceipt(record model.ConfirmationRecord) ReceiptView {
	return ReceiptView{
		Record:       record,
		DonorDisplay: record.PledgeSnapshot.DisplayName(),
		TotalText:    service.FormatRupiah(record.Fee.Total),
		ConfirmedAt:  service.FormatDateTime(record.ConfirmedAt),
		Text:         service.FormatReceipt(&record),
	}
}

func renderForm(f checkout.Form, m *checkout.Machine) *FormView {
	pledge := f.Pledge()
	rules := f.Rules()

	methods := make([]MethodView, 0, len(model.PaymentMethods))
	for _, method := range model.PaymentMethods {
		ch := m.Channels().Resolve(method)
		methods = append(methods, MethodView{
			Method:      method,
			Label:       ch.Label,
			Description: ch.Description,
			Unavailable: ch.Unavailable,
		})
	}

	return &FormView{
		CampaignID:    pledge.CampaignID,
		CampaignTitle: pledge.CampaignTitle,
		Stage:         f.Stage(),
		PresetAmounts: rules.PresetAmounts,
		PresetAmount:  f.PresetAmount(),
		CustomAmount:  f.CustomAmount(),
		MinAmount:     rules.MinAmount,
		MaxAmount:     rules.MaxAmount,
		PaymentMethod: pledge.PaymentMethod,
		Methods:       methods,
		Donor: checkout.DonorDetails{
			Name:        pledge.DonorName,
			Email:       pledge.DonorEmail,
			Message:     pledge.Message,
			IsAnonymous: pledge.IsAnonymous,
		},
		CanAdvance: f.CanAdvance(),
		Summary:    renderSummary(pledge, m.Fees().Compute(pledge.Amount)),
	}
}

func renderSummary(p model.PledgeContext, fee model.FeeBreakdown) SummaryView {
	donor := p.DonorName
	if p.IsAnonymous {
		donor = summaryAnonymousName
	}
	return SummaryView{
		Fee:           fee,
		AmountText:    service.FormatRupiah(fee.Amount),
		AdminFeeText:  service.FormatRupiah(fee.AdminFee),
		TotalText:     service.FormatRupiah(fee.Total),
		DonorDisplay:  donor,
		PaymentMethod: service.MethodLabel(p.PaymentMethod),
	}
}

func renderPayment(session model.PaymentSession, ch checkout.Channel, remaining int, verifying bool, notice string, m *checkout.Machine) *PaymentView {
	left := checkout.Remaining(remaining, m.TickInterval())
	return &PaymentView{
		Session:          session,
		Channel:          ch,
		RemainingSeconds: int64(left / time.Second),
		RemainingText:    service.FormatCountdown(left),
		Verifying:        verifying,
		Notice:           notice,
	}
}
