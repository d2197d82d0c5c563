package checkout

import (
	"context"
	"errors"

	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

// FlowOptions are the collaborators of a Flow. Zero values fall back to a
// DelayVerifier without delay, RealTicker and a discarding logger.
type FlowOptions struct {
	ID        string
	Verifier  Verifier
	NewTicker TickerFunc
	Logger    *logger.Logger
	// Observer is called from the flow goroutine after every applied event
	Observer func(State)
	// OnConfirmed is called from the flow goroutine once, with the final record
	OnConfirmed func(model.ConfirmationRecord)
}

type request struct {
	event Event
	reply chan result
}

type result struct {
	state State
	err   error
}

// Flow runs one checkout. A single goroutine applies user events, countdown
// ticks and verification results one at a time, so the state needs no lock.
type Flow struct {
	id          string
	machine     *Machine
	verifier    Verifier
	newTicker   TickerFunc
	logger      *logger.Logger
	observer    func(State)
	onConfirmed func(model.ConfirmationRecord)

	requests chan request
	ticks    chan struct{}
	results  chan VerificationResult
	done     chan struct{}

	// owned by the loop goroutine
	state        State
	countdown    *Countdown
	cancelVerify context.CancelFunc
}

// NewFlow starts a checkout for seed. It fails with MissingContextError when
// the seed has no campaign.
func NewFlow(seed model.Seed, m *Machine, opts FlowOptions) (*Flow, error) {
	initial, err := m.Start(seed)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		id:          opts.ID,
		machine:     m,
		verifier:    opts.Verifier,
		newTicker:   opts.NewTicker,
		logger:      opts.Logger,
		observer:    opts.Observer,
		onConfirmed: opts.OnConfirmed,
		requests:    make(chan request),
		ticks:       make(chan struct{}),
		results:     make(chan VerificationResult),
		done:        make(chan struct{}),
		state:       initial,
	}
	if f.id == "" {
		f.id = NewSessionID()
	}
	if f.verifier == nil {
		f.verifier = DelayVerifier{}
	}
	if f.newTicker == nil {
		f.newTicker = RealTicker
	}
	if f.logger == nil {
		f.logger = logger.Discard()
	}
	f.logger = f.logger.WithCheckoutID(f.id)

	go f.run()

	f.logger.Info("Checkout started", "campaign_id", seed.CampaignID)
	return f, nil
}

// ID returns the flow id
func (f *Flow) ID() string {
	return f.id
}

// Done is closed once the flow has been abandoned and torn down
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Dispatch applies e and returns the resulting state
func (f *Flow) Dispatch(ctx context.Context, e Event) (State, error) {
	req := request{event: e, reply: make(chan result, 1)}

	select {
	case f.requests <- req:
	case <-f.done:
		return AbandonedStep{}, ErrFlowClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.state, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns the current state
func (f *Flow) State(ctx context.Context) (State, error) {
	return f.Dispatch(ctx, snapshot{})
}

// Close abandons the flow and waits for its goroutine to exit. The countdown
// and any in-flight verification are cancelled first.
func (f *Flow) Close() {
	select {
	case <-f.done:
		return
	default:
	}
	_, err := f.Dispatch(context.Background(), Abandon{})
	if err != nil && !errors.Is(err, ErrFlowClosed) {
		f.logger.Warn("Failed to abandon checkout", "error", err)
	}
	<-f.done
}

// snapshot reads the state without changing it
type snapshot struct{}

func (snapshot) eventName() string { return "snapshot" }

func (f *Flow) run() {
	defer close(f.done)

	for {
		select {
		case req := <-f.requests:
			if _, ok := req.event.(snapshot); ok {
				req.reply <- result{state: f.state}
				continue
			}
			err := f.apply(req.event)
			req.reply <- result{state: f.state, err: err}
		case <-f.ticks:
			f.apply(Tick{})
		case res := <-f.results:
			f.apply(res)
		}

		if _, ok := f.state.(AbandonedStep); ok {
			f.teardown()
			return
		}
	}
}

func (f *Flow) apply(e Event) error {
	prev := f.state.Step()
	next, effects, err := f.machine.Transition(f.state, e)
	f.state = next

	for _, eff := range effects {
		f.perform(eff)
	}

	if err != nil {
		f.logEventError(e, err)
	}
	if next.Step() != prev {
		f.logger.Info("Checkout step changed",
			"event", EventName(e),
			"from", prev,
			"to", next.Step(),
		)
	}
	if f.observer != nil {
		f.observer(next)
	}
	return err
}

func (f *Flow) perform(eff Effect) {
	switch e := eff.(type) {
	case StartTimer:
		f.stopTimer()
		f.countdown = StartCountdown(e.Ticks, f.machine.TickInterval(), f.newTicker, f.ticks)
	case StopTimer:
		f.stopTimer()
	case StartVerification:
		f.startVerification(e.Session)
	case CancelVerification:
		if f.cancelVerify != nil {
			f.cancelVerify()
			f.cancelVerify = nil
		}
	case EmitConfirmation:
		f.cancelVerify = nil
		f.logger.WithTrxID(e.Record.TransactionID).Info("Donation confirmed",
			"campaign_id", e.Record.PledgeSnapshot.CampaignID,
			"amount", e.Record.Fee.Amount,
			"total", e.Record.Fee.Total,
		)
		if f.onConfirmed != nil {
			f.onConfirmed(e.Record)
		}
	}
}

func (f *Flow) stopTimer() {
	if f.countdown != nil {
		f.countdown.Stop()
		f.countdown = nil
	}
}

func (f *Flow) startVerification(session model.PaymentSession) {
	ctx, cancel := context.WithCancel(context.Background())
	f.cancelVerify = cancel

	go func() {
		defer cancel()
		err := f.verifier.VerifyPayment(ctx, session)
		select {
		case f.results <- VerificationResult{SessionID: session.ID, Err: err}:
		case <-f.done:
		}
	}()
}

func (f *Flow) teardown() {
	f.stopTimer()
	if f.cancelVerify != nil {
		f.cancelVerify()
		f.cancelVerify = nil
	}
	f.logger.Info("Checkout closed")
}

func (f *Flow) logEventError(e Event, err error) {
	var validation *ValidationError
	var failure *VerificationFailure
	var expiry *ExpiryError

	switch {
	case errors.As(err, &validation):
		f.logger.Debug("Checkout input rejected", "event", EventName(e), "field", validation.Field)
	case errors.As(err, &failure):
		f.logger.Warn("Payment verification failed", "session_id", failure.SessionID, "error", failure.Err)
	case errors.As(err, &expiry):
		f.logger.Warn("Confirmation after expiry rejected", "session_id", expiry.SessionID)
	default:
		f.logger.Debug("Checkout event rejected", "event", EventName(e), "error", err)
	}
}
