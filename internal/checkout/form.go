package checkout

import (
	"strconv"
	"strings"
	"unicode"

	"doneasy-checkout/internal/model"
)

// FormStage is the page of the donation form currently shown
type FormStage string

const (
	StageAmount FormStage = "amount"
	StageDonor  FormStage = "donor"
)

// FormRules are the configurable limits applied by the form
type FormRules struct {
	MinAmount int64
	// MaxAmount caps a single pledge; zero means no cap
	MaxAmount     int64
	PresetAmounts []int64
}

// DonorDetails are the identity fields collected on the donor stage
type DonorDetails struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Form collects the pledge amount and donor details.
// Preset and custom amounts are mutually exclusive; at most one is set.
type Form struct {
	rules  FormRules
	stage  FormStage
	preset int64
	custom string
	pledge model.PledgeContext
}

// NewForm starts a form for the campaign in seed. A seeded amount that matches a
// preset selects it, any other positive amount is entered as a custom amount.
func NewForm(seed model.Seed, rules FormRules) (Form, error) {
	if strings.TrimSpace(seed.CampaignID) == "" {
		return Form{}, &MissingContextError{Missing: "campaign_id"}
	}

	f := Form{
		rules: rules,
		stage: StageAmount,
		pledge: model.PledgeContext{
			CampaignID:    seed.CampaignID,
			CampaignTitle: seed.CampaignTitle,
			PaymentMethod: model.PaymentMethodBankTransfer,
		},
	}
	if seed.Amount > 0 {
		if f.isPreset(seed.Amount) {
			f.preset = seed.Amount
		} else {
			f.custom = strconv.FormatInt(seed.Amount, 10)
		}
	}
	return f, nil
}

// Stage returns the current stage
func (f Form) Stage() FormStage {
	return f.stage
}

// Rules returns the limits the form validates against
func (f Form) Rules() FormRules {
	return f.rules
}

// PresetAmount returns the selected preset or 0
func (f Form) PresetAmount() int64 {
	return f.preset
}

// CustomAmount returns the digits typed as a custom amount
func (f Form) CustomAmount() string {
	return f.custom
}

// Amount returns the effective pledge amount
func (f Form) Amount() int64 {
	if f.preset > 0 {
		return f.preset
	}
	return parseDigits(f.custom)
}

// Pledge returns the draft pledge with the current amount applied
func (f Form) Pledge() model.PledgeContext {
	p := f.pledge
	p.Amount = f.Amount()
	return p
}

// SelectPreset picks one of the preset denominations and clears the custom amount
func (f *Form) SelectPreset(amount int64) error {
	if !f.isPreset(amount) {
		return &ValidationError{Field: "amount", Message: "not a preset amount"}
	}
	f.preset = amount
	f.custom = ""
	return nil
}

// EnterCustomAmount keeps only the digits of input and clears the preset
func (f *Form) EnterCustomAmount(input string) {
	f.custom = stripNonDigits(input)
	f.preset = 0
}

// SelectMethod sets the payment method; any supported method is accepted
func (f *Form) SelectMethod(method model.PaymentMethod) error {
	if !method.Valid() {
		return &ValidationError{Field: "payment_method", Message: "unsupported payment method"}
	}
	f.pledge.PaymentMethod = method
	return nil
}

// SetDonor replaces the donor details
func (f *Form) SetDonor(d DonorDetails) {
	f.pledge.DonorName = d.Name
	f.pledge.DonorEmail = strings.TrimSpace(d.Email)
	f.pledge.Message = d.Message
	f.pledge.IsAnonymous = d.IsAnonymous
}

// CanAdvance reports whether Advance would succeed at the current stage
func (f Form) CanAdvance() bool {
	return f.validate() == nil
}

// Advance moves from the amount stage to the donor stage, or completes the form
// from the donor stage. done is true when pledge is ready for payment.
func (f *Form) Advance() (pledge model.PledgeContext, done bool, err error) {
	if err := f.validate(); err != nil {
		return model.PledgeContext{}, false, err
	}
	if f.stage == StageAmount {
		f.stage = StageDonor
		return model.PledgeContext{}, false, nil
	}
	pledge = f.Pledge()
	pledge.DonorName = strings.TrimSpace(pledge.DonorName)
	return pledge, true, nil
}

// Back returns from the donor stage to the amount stage
func (f *Form) Back() bool {
	if f.stage != StageDonor {
		return false
	}
	f.stage = StageAmount
	return true
}

func (f Form) validate() error {
	amount := f.Amount()
	if amount < f.rules.MinAmount {
		return &ValidationError{Field: "amount", Message: "below minimum donation"}
	}
	if f.rules.MaxAmount > 0 && amount > f.rules.MaxAmount {
		return &ValidationError{Field: "amount", Message: "above maximum donation"}
	}
	if f.stage == StageDonor && strings.TrimSpace(f.pledge.DonorName) == "" {
		return &ValidationError{Field: "name", Message: "donor name is required"}
	}
	return nil
}

func (f Form) isPreset(amount int64) bool {
	for _, p := range f.rules.PresetAmounts {
		if p == amount {
			return true
		}
	}
	return false
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseDigits interprets a digit string, treating empty or overflowing input as zero
func parseDigits(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
