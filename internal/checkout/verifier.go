package checkout

import (
	"context"
	"time"

	"doneasy-checkout/internal/model"
)

// Verifier checks that the payment for a session has been received
type Verifier interface {
	VerifyPayment(ctx context.Context, session model.PaymentSession) error
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(ctx context.Context, session model.PaymentSession) error

// VerifyPayment calls f
func (f VerifierFunc) VerifyPayment(ctx context.Context, session model.PaymentSession) error {
	return f(ctx, session)
}

// DelayVerifier accepts every payment after a fixed delay
type DelayVerifier struct {
	Delay time.Duration
}

// VerifyPayment waits for the delay or until ctx is done
func (v DelayVerifier) VerifyPayment(ctx context.Context, _ model.PaymentSession) error {
	t := time.NewTimer(v.Delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
