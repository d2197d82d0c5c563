package checkout

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfirmationInFlight is returned when a confirmation is requested while one is being verified
	ErrConfirmationInFlight = errors.New("confirmation already in progress")
	// ErrChannelUnavailable is returned when confirming a session whose channel has no instructions
	ErrChannelUnavailable = errors.New("payment channel unavailable")
	// ErrPledgeFrozen is returned for form edits after the form step has been left
	ErrPledgeFrozen = errors.New("pledge can no longer be changed")
	// ErrInvalidTransition is returned for events the current step does not accept
	ErrInvalidTransition = errors.New("event not allowed in current step")
	// ErrFlowClosed is returned once a flow has been abandoned or shut down
	ErrFlowClosed = errors.New("checkout flow closed")
)

// ValidationError blocks advancing the form and names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExpiryError is returned when a session's window closed before confirmation
type ExpiryError struct {
	SessionID string
	ExpiresAt time.Time
}

func (e *ExpiryError) Error() string {
	return fmt.Sprintf("payment session %s expired at %s, please restart checkout",
		e.SessionID, e.ExpiresAt.Format(time.RFC3339))
}

// VerificationFailure wraps a failed payment verification; the session stays retryable
type VerificationFailure struct {
	SessionID string
	Err       error
}

func (e *VerificationFailure) Error() string {
	return fmt.Sprintf("payment verification failed for session %s: %v", e.SessionID, e.Err)
}

func (e *VerificationFailure) Unwrap() error {
	return e.Err
}

// MissingContextError is returned when a flow is started without a campaign seed
type MissingContextError struct {
	Missing string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("checkout started without %s, select a campaign first", e.Missing)
}
