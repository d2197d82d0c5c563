package checkout

import "doneasy-checkout/internal/model"

// Step names the kind of State
type Step string

const (
	StepForm       Step = "form"
	StepPayment    Step = "payment"
	StepConfirming Step = "confirming"
	StepSuccess    Step = "success"
	StepExpired    Step = "expired"
	StepAbandoned  Step = "abandoned"
)

// State is one of FormStep, PaymentStep, ConfirmingStep, SuccessStep,
// ExpiredStep or AbandonedStep.
type State interface {
	Step() Step
}

// FormStep collects amount and donor details
type FormStep struct {
	Form Form
}

// PaymentStep shows settlement instructions while the countdown runs
type PaymentStep struct {
	Pledge    model.PledgeContext
	Fee       model.FeeBreakdown
	Channel   Channel
	Session   model.PaymentSession
	Remaining int
	// Notice carries the last transient failure shown to the donor
	Notice string
}

// ConfirmingStep waits for payment verification
type ConfirmingStep struct {
	Pledge    model.PledgeContext
	Fee       model.FeeBreakdown
	Channel   Channel
	Session   model.PaymentSession
	Remaining int
}

// SuccessStep holds the confirmation record
type SuccessStep struct {
	Record  model.ConfirmationRecord
	Session model.PaymentSession
}

// ExpiredStep is reached when the countdown ran out before confirmation
type ExpiredStep struct {
	Pledge  model.PledgeContext
	Session model.PaymentSession
}

// AbandonedStep is terminal; the donor navigated away
type AbandonedStep struct {
	From Step
}

func (FormStep) Step() Step       { return StepForm }
func (PaymentStep) Step() Step    { return StepPayment }
func (ConfirmingStep) Step() Step { return StepConfirming }
func (SuccessStep) Step() Step    { return StepSuccess }
func (ExpiredStep) Step() Step    { return StepExpired }
func (AbandonedStep) Step() Step  { return StepAbandoned }

// Terminal reports whether no further events can change s
func Terminal(s State) bool {
	switch s.(type) {
	case SuccessStep, AbandonedStep:
		return true
	}
	return false
}

// Event is an input to Machine.Transition
type Event interface {
	eventName() string
}

type (
	// SelectPreset picks a preset amount
	SelectPreset struct{ Amount int64 }
	// EnterCustomAmount types a free-text amount
	EnterCustomAmount struct{ Input string }
	// SelectMethod chooses the payment method
	SelectMethod struct{ Method model.PaymentMethod }
	// UpdateDonor replaces the donor details
	UpdateDonor struct{ Donor DonorDetails }
	// Advance moves the form forward
	Advance struct{}
	// Back returns to the amount stage
	Back struct{}
	// Tick is one countdown interval elapsing
	Tick struct{}
	// ConfirmPayment is the donor asserting the transfer was made
	ConfirmPayment struct{}
	// VerificationResult reports the outcome of payment verification
	VerificationResult struct {
		SessionID string
		Err       error
	}
	// Restart begins a new form after expiry
	Restart struct{}
	// Abandon leaves the checkout
	Abandon struct{}
)

func (SelectPreset) eventName() string       { return "select_preset" }
func (EnterCustomAmount) eventName() string  { return "enter_custom_amount" }
func (SelectMethod) eventName() string       { return "select_method" }
func (UpdateDonor) eventName() string        { return "update_donor" }
func (Advance) eventName() string            { return "advance" }
func (Back) eventName() string               { return "back" }
func (Tick) eventName() string               { return "tick" }
func (ConfirmPayment) eventName() string     { return "confirm_payment" }
func (VerificationResult) eventName() string { return "verification_result" }
func (Restart) eventName() string            { return "restart" }
func (Abandon) eventName() string            { return "abandon" }

// EventName returns a stable name for logging
func EventName(e Event) string {
	return e.eventName()
}

// Effect is a side effect requested by a transition and carried out by the Flow
type Effect interface {
	effect()
}

type (
	// StartTimer starts a countdown of Ticks intervals
	StartTimer struct{ Ticks int }
	// StopTimer cancels the running countdown
	StopTimer struct{}
	// StartVerification begins verifying Session
	StartVerification struct{ Session model.PaymentSession }
	// CancelVerification abandons an in-flight verification
	CancelVerification struct{}
	// EmitConfirmation hands the finished record to the owner of the flow
	EmitConfirmation struct{ Record model.ConfirmationRecord }
)

func (StartTimer) effect()         {}
func (StopTimer) effect()          {}
func (StartVerification) effect()  {}
func (CancelVerification) effect() {}
func (EmitConfirmation) effect()   {}
