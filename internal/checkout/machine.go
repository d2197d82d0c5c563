package checkout

import (
	"fmt"
	"time"

	"doneasy-checkout/internal/model"
)

// Settings configures a Machine
type Settings struct {
	Rules         FormRules
	AdminFeeBPS   int64
	PaymentWindow time.Duration
	TickInterval  time.Duration
	Channels      []Channel

	// Now and NewTransactionID default to time.Now and NewTransactionID
	Now              func() time.Time
	NewTransactionID func() (string, error)
}

// Machine holds the checkout transition function and the rules it applies.
// It keeps no per-flow state and is safe to share between flows.
type Machine struct {
	rules        FormRules
	fees         FeeCalculator
	channels     *ChannelResolver
	window       time.Duration
	tickInterval time.Duration
	ticks        int
	now          func() time.Time
	newTrxID     func() (string, error)
}

// NewMachine creates a machine from settings
func NewMachine(s Settings) *Machine {
	channels := s.Channels
	if channels == nil {
		channels = DefaultChannels()
	}
	m := &Machine{
		rules:        s.Rules,
		fees:         NewFeeCalculator(s.AdminFeeBPS),
		channels:     NewChannelResolver(channels),
		window:       s.PaymentWindow,
		tickInterval: s.TickInterval,
		now:          s.Now,
		newTrxID:     s.NewTransactionID,
	}
	if m.tickInterval > 0 {
		m.ticks = int(m.window / m.tickInterval)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newTrxID == nil {
		m.newTrxID = NewTransactionID
	}
	return m
}

// Rules returns the form limits
func (m *Machine) Rules() FormRules {
	return m.rules
}

// Fees returns the fee calculator
func (m *Machine) Fees() FeeCalculator {
	return m.fees
}

// Channels returns the channel resolver
func (m *Machine) Channels() *ChannelResolver {
	return m.channels
}

// Ticks returns the number of countdown intervals in a payment window
func (m *Machine) Ticks() int {
	return m.ticks
}

// TickInterval returns the countdown resolution
func (m *Machine) TickInterval() time.Duration {
	return m.tickInterval
}

// Start returns the initial form step for seed
func (m *Machine) Start(seed model.Seed) (State, error) {
	form, err := NewForm(seed, m.rules)
	if err != nil {
		return nil, err
	}
	return FormStep{Form: form}, nil
}

// Transition applies e to s. It always returns the state the flow should be in
// afterwards; on error that is usually s unchanged.
func (m *Machine) Transition(s State, e Event) (State, []Effect, error) {
	switch st := s.(type) {
	case FormStep:
		return m.onForm(st, e)
	case PaymentStep:
		return m.onPayment(st, e)
	case ConfirmingStep:
		return m.onConfirming(st, e)
	case SuccessStep:
		return m.onFinished(st, e)
	case ExpiredStep:
		return m.onExpired(st, e)
	case AbandonedStep:
		return st, nil, ErrFlowClosed
	default:
		return s, nil, fmt.Errorf("unknown checkout state %T", s)
	}
}

func (m *Machine) onForm(st FormStep, e Event) (State, []Effect, error) {
	form := st.Form
	switch ev := e.(type) {
	case SelectPreset:
		if err := form.SelectPreset(ev.Amount); err != nil {
			return st, nil, err
		}
	case EnterCustomAmount:
		form.EnterCustomAmount(ev.Input)
	case SelectMethod:
		if err := form.SelectMethod(ev.Method); err != nil {
			return st, nil, err
		}
	case UpdateDonor:
		form.SetDonor(ev.Donor)
	case Back:
		if !form.Back() {
			return st, nil, ErrInvalidTransition
		}
	case Advance:
		pledge, done, err := form.Advance()
		if err != nil {
			return st, nil, err
		}
		if done {
			return m.enterPayment(pledge)
		}
	case Tick, VerificationResult:
		return st, nil, nil
	case Abandon:
		return AbandonedStep{From: StepForm}, nil, nil
	default:
		return st, nil, ErrInvalidTransition
	}
	return FormStep{Form: form}, nil, nil
}

func (m *Machine) enterPayment(pledge model.PledgeContext) (State, []Effect, error) {
	now := m.now()
	fee := m.fees.Compute(pledge.Amount)
	channel := m.channels.Resolve(pledge.PaymentMethod)
	session := model.PaymentSession{
		ID:                NewSessionID(),
		CampaignID:        pledge.CampaignID,
		Total:             fee.Total,
		Method:            pledge.PaymentMethod,
		Status:            model.SessionAwaitingPayment,
		SettlementOptions: channel.SettlementOptions,
		CreatedAt:         now,
		ExpiresAt:         now.Add(m.window),
	}
	next := PaymentStep{
		Pledge:    pledge,
		Fee:       fee,
		Channel:   channel,
		Session:   session,
		Remaining: m.ticks,
	}
	return next, []Effect{StartTimer{Ticks: m.ticks}}, nil
}

func (m *Machine) onPayment(st PaymentStep, e Event) (State, []Effect, error) {
	switch e.(type) {
	case Tick:
		if st.Remaining > 0 {
			st.Remaining--
		}
		if st.Remaining == 0 {
			return m.expire(st.Pledge, st.Session), []Effect{StopTimer{}}, nil
		}
		return st, nil, nil
	case ConfirmPayment:
		if st.Session.ExpiredAt(m.now()) {
			return m.expire(st.Pledge, st.Session), []Effect{StopTimer{}},
				&ExpiryError{SessionID: st.Session.ID, ExpiresAt: st.Session.ExpiresAt}
		}
		if st.Channel.Unavailable {
			return st, nil, ErrChannelUnavailable
		}
		session := st.Session
		session.Status = model.SessionConfirming
		next := ConfirmingStep{
			Pledge:    st.Pledge,
			Fee:       st.Fee,
			Channel:   st.Channel,
			Session:   session,
			Remaining: st.Remaining,
		}
		return next, []Effect{StopTimer{}, StartVerification{Session: session}}, nil
	case Abandon:
		return AbandonedStep{From: StepPayment}, []Effect{StopTimer{}}, nil
	case VerificationResult:
		return st, nil, nil
	case SelectPreset, EnterCustomAmount, SelectMethod, UpdateDonor, Advance, Back:
		return st, nil, ErrPledgeFrozen
	default:
		return st, nil, ErrInvalidTransition
	}
}

func (m *Machine) onConfirming(st ConfirmingStep, e Event) (State, []Effect, error) {
	switch ev := e.(type) {
	case VerificationResult:
		if ev.SessionID != st.Session.ID {
			return st, nil, nil
		}
		if ev.Err != nil {
			return m.resumePayment(st, &VerificationFailure{SessionID: st.Session.ID, Err: ev.Err})
		}
		trxID, err := m.newTrxID()
		if err != nil {
			return m.resumePayment(st, &VerificationFailure{SessionID: st.Session.ID, Err: err})
		}
		session := st.Session
		session.Status = model.SessionConfirmed
		record := model.ConfirmationRecord{
			TransactionID:  trxID,
			SessionID:      session.ID,
			PledgeSnapshot: st.Pledge,
			Fee:            st.Fee,
			ConfirmedAt:    m.now(),
		}
		return SuccessStep{Record: record, Session: session}, []Effect{EmitConfirmation{Record: record}}, nil
	case ConfirmPayment:
		return st, nil, ErrConfirmationInFlight
	case Tick:
		return st, nil, nil
	case Abandon:
		return AbandonedStep{From: StepConfirming}, []Effect{CancelVerification{}}, nil
	case SelectPreset, EnterCustomAmount, SelectMethod, UpdateDonor, Advance, Back:
		return st, nil, ErrPledgeFrozen
	default:
		return st, nil, ErrInvalidTransition
	}
}

// resumePayment puts a failed confirmation back to awaiting payment. The
// countdown resumes with what is left of the window after verification, or the
// session expires if the window closed meanwhile.
func (m *Machine) resumePayment(st ConfirmingStep, failure *VerificationFailure) (State, []Effect, error) {
	session := st.Session
	now := m.now()
	remaining := st.Remaining
	if m.tickInterval > 0 {
		if left := int(session.ExpiresAt.Sub(now) / m.tickInterval); left < remaining {
			remaining = left
		}
	}
	if session.ExpiredAt(now) || remaining <= 0 {
		return m.expire(st.Pledge, session), nil, failure
	}
	session.Status = model.SessionAwaitingPayment
	next := PaymentStep{
		Pledge:    st.Pledge,
		Fee:       st.Fee,
		Channel:   st.Channel,
		Session:   session,
		Remaining: remaining,
		Notice:    "Pembayaran belum terverifikasi, silakan coba lagi",
	}
	return next, []Effect{StartTimer{Ticks: remaining}}, failure
}

func (m *Machine) onFinished(st SuccessStep, e Event) (State, []Effect, error) {
	switch e.(type) {
	case Abandon:
		return AbandonedStep{From: StepSuccess}, nil, nil
	case Tick, VerificationResult:
		return st, nil, nil
	default:
		return st, nil, ErrInvalidTransition
	}
}

func (m *Machine) onExpired(st ExpiredStep, e Event) (State, []Effect, error) {
	switch e.(type) {
	case ConfirmPayment:
		return st, nil, &ExpiryError{SessionID: st.Session.ID, ExpiresAt: st.Session.ExpiresAt}
	case Restart:
		form, err := NewForm(model.Seed{
			CampaignID:    st.Pledge.CampaignID,
			CampaignTitle: st.Pledge.CampaignTitle,
			Amount:        st.Pledge.Amount,
		}, m.rules)
		if err != nil {
			return st, nil, err
		}
		if err := form.SelectMethod(st.Pledge.PaymentMethod); err != nil {
			return st, nil, err
		}
		form.SetDonor(DonorDetails{
			Name:        st.Pledge.DonorName,
			Email:       st.Pledge.DonorEmail,
			Message:     st.Pledge.Message,
			IsAnonymous: st.Pledge.IsAnonymous,
		})
		return FormStep{Form: form}, nil, nil
	case Abandon:
		return AbandonedStep{From: StepExpired}, nil, nil
	case Tick, VerificationResult:
		return st, nil, nil
	default:
		return st, nil, ErrInvalidTransition
	}
}

func (m *Machine) expire(pledge model.PledgeContext, session model.PaymentSession) ExpiredStep {
	session.Status = model.SessionExpired
	return ExpiredStep{Pledge: pledge, Session: session}
}
