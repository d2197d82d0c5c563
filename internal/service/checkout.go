package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/repository"
	"doneasy-checkout/pkg/logger"
)

// ErrCheckoutNotFound is returned for unknown or already closed checkouts
var ErrCheckoutNotFound = errors.New("checkout not found")

// CheckoutOptions are the collaborators of a CheckoutService
type CheckoutOptions struct {
	Machine    *checkout.Machine
	Verifier   checkout.Verifier
	Repository *repository.ConfirmationRepository
	Notifiers  []ReceiptNotifier
	// NewTicker defaults to checkout.RealTicker
	NewTicker checkout.TickerFunc
	// FlowTTL closes checkouts idle for longer; zero disables the sweep
	FlowTTL       time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

type trackedFlow struct {
	flow       *checkout.Flow
	lastActive time.Time
}

// CheckoutService keeps the running checkouts, persists confirmations and
// hands receipts to the notifiers
type CheckoutService struct {
	machine   *checkout.Machine
	verifier  checkout.Verifier
	repo      *repository.ConfirmationRepository
	notifiers []ReceiptNotifier
	newTicker checkout.TickerFunc
	flowTTL   time.Duration
	now       func() time.Time
	logger    *logger.Logger

	mu    sync.Mutex
	flows map[string]*trackedFlow

	notifyWG sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	sweepWG  sync.WaitGroup
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(opts CheckoutOptions, log *logger.Logger) *CheckoutService {
	s := &CheckoutService{
		machine:   opts.Machine,
		verifier:  opts.Verifier,
		repo:      opts.Repository,
		notifiers: opts.Notifiers,
		newTicker: opts.NewTicker,
		flowTTL:   opts.FlowTTL,
		now:       opts.Now,
		logger:    log,
		flows:     make(map[string]*trackedFlow),
		stop:      make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newTicker == nil {
		s.newTicker = checkout.RealTicker
	}

	if s.flowTTL > 0 {
		interval := opts.SweepInterval
		if interval <= 0 {
			interval = time.Minute
		}
		s.sweepWG.Add(1)
		go s.sweepPeriodically(interval)
	}

	return s
}

// Machine returns the shared checkout machine
func (s *CheckoutService) Machine() *checkout.Machine {
	return s.machine
}

// Start opens a checkout for seed and returns its id and initial state
func (s *CheckoutService) Start(ctx context.Context, seed model.Seed) (string, checkout.State, error) {
	id := checkout.NewSessionID()
	flow, err := checkout.NewFlow(seed, s.machine, checkout.FlowOptions{
		ID:          id,
		Verifier:    s.verifier,
		NewTicker:   s.newTicker,
		Logger:      s.logger,
		OnConfirmed: s.handleConfirmed,
	})
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.flows[id] = &trackedFlow{flow: flow, lastActive: s.now()}
	s.mu.Unlock()

	go s.forget(id, flow)

	state, err := flow.State(ctx)
	if err != nil {
		return "", nil, err
	}
	return id, state, nil
}

// Dispatch applies an event to a running checkout
func (s *CheckoutService) Dispatch(ctx context.Context, id string, e checkout.Event) (checkout.State, error) {
	flow, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	state, err := flow.Dispatch(ctx, e)
	if errors.Is(err, checkout.ErrFlowClosed) {
		return nil, ErrCheckoutNotFound
	}
	return state, err
}

// State returns the current state of a checkout
func (s *CheckoutService) State(ctx context.Context, id string) (checkout.State, error) {
	flow, err := s.touch(id)
	if err != nil {
		return nil, err
	}
	state, err := flow.State(ctx)
	if errors.Is(err, checkout.ErrFlowClosed) {
		return nil, ErrCheckoutNotFound
	}
	return state, err
}

// Abandon closes a checkout, stopping its countdown and any verification
func (s *CheckoutService) Abandon(id string) error {
	s.mu.Lock()
	tracked, ok := s.flows[id]
	delete(s.flows, id)
	s.mu.Unlock()

	if !ok {
		return ErrCheckoutNotFound
	}
	tracked.flow.Close()
	return nil
}

// ActiveCount returns the number of open checkouts
func (s *CheckoutService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// ConfirmationCount returns how many confirmations have been stored
func (s *CheckoutService) ConfirmationCount() (int64, error) {
	return s.repo.Count()
}

// Receipt returns a stored confirmation by transaction id
func (s *CheckoutService) Receipt(trxID string) (*model.ConfirmationRecord, error) {
	return s.repo.GetByTransactionID(trxID)
}

// Donors returns the latest confirmed donations of a campaign with anonymous
// donors masked
func (s *CheckoutService) Donors(campaignID string, limit int) ([]model.DonorEntry, error) {
	records, err := s.repo.ListByCampaign(campaignID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.DonorEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, model.DonorEntry{
			TransactionID: r.TransactionID,
			Name:          r.PledgeSnapshot.DisplayName(),
			Amount:        r.Fee.Amount,
			Message:       r.PledgeSnapshot.Message,
			ConfirmedAt:   r.ConfirmedAt,
		})
	}
	return entries, nil
}

// CampaignTotal returns the sum of confirmed amounts and the donation count
func (s *CheckoutService) CampaignTotal(campaignID string) (int64, int64, error) {
	return s.repo.TotalByCampaign(campaignID)
}

// Sweep closes checkouts idle since before now minus the TTL and returns how many
func (s *CheckoutService) Sweep(now time.Time) int {
	cutoff := now.Add(-s.flowTTL)

	s.mu.Lock()
	var stale []*checkout.Flow
	for id, tracked := range s.flows {
		if tracked.lastActive.Before(cutoff) {
			stale = append(stale, tracked.flow)
			delete(s.flows, id)
		}
	}
	s.mu.Unlock()

	for _, flow := range stale {
		flow.Close()
	}
	return len(stale)
}

// Close stops the sweep, abandons every open checkout and waits for pending
// notifications
func (s *CheckoutService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.sweepWG.Wait()

	s.mu.Lock()
	flows := make([]*checkout.Flow, 0, len(s.flows))
	for id, tracked := range s.flows {
		flows = append(flows, tracked.flow)
		delete(s.flows, id)
	}
	s.mu.Unlock()

	for _, flow := range flows {
		flow.Close()
	}
	s.notifyWG.Wait()
}

func (s *CheckoutService) touch(id string) (*checkout.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracked, ok := s.flows[id]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	tracked.lastActive = s.now()
	return tracked.flow, nil
}

// forget drops the flow from the registry once it has shut down on its own
func (s *CheckoutService) forget(id string, flow *checkout.Flow) {
	<-flow.Done()

	s.mu.Lock()
	if tracked, ok := s.flows[id]; ok && tracked.flow == flow {
		delete(s.flows, id)
	}
	s.mu.Unlock()
}

// handleConfirmed runs on the flow goroutine, so notifications are sent in the background
func (s *CheckoutService) handleConfirmed(record model.ConfirmationRecord) {
	log := s.logger.WithTrxID(record.TransactionID)

	if err := s.repo.Save(&record); err != nil {
		log.WithError(err).Error("Failed to save confirmation")
	}

	for _, n := range s.notifiers {
		s.notifyWG.Add(1)
		go func(n ReceiptNotifier) {
			defer s.notifyWG.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			err := n.NotifyConfirmation(ctx, &record)
			switch {
			case err == nil:
			case errors.Is(err, ErrNoRecipient):
				log.Debug("Receipt skipped, no recipient")
			default:
				log.WithError(err).Error("Failed to send receipt")
			}
		}(n)
	}
}

// sweepPeriodically closes idle checkouts until the service is closed
func (s *CheckoutService) sweepPeriodically(interval time.Duration) {
	defer s.sweepWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("Closed idle checkouts", "count", n)
			}
		}
	}
}
