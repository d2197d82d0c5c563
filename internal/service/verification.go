package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

// VerificationService asks the payment verification endpoint whether a
// session has been paid
type VerificationService struct {
	httpClient *http.Client
	config     *config.VerificationConfig
	logger     *logger.Logger
	backoff    func(attempt int) time.Duration
}

// NewVerificationService creates a new verification service
func NewVerificationService(cfg *config.VerificationConfig, log *logger.Logger) *VerificationService {
	return &VerificationService{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config:  cfg,
		logger:  log,
		backoff: exponentialBackoff,
	}
}

// SetBackoff overrides the delay between attempts
func (s *VerificationService) SetBackoff(backoff func(attempt int) time.Duration) {
	s.backoff = backoff
}

// ErrPaymentNotReceived is returned when the endpoint answers that the payment is missing
type ErrPaymentNotReceived struct {
	Message string
}

func (e *ErrPaymentNotReceived) Error() string {
	return fmt.Sprintf("payment not received: %s", e.Message)
}

// VerifyPayment posts the session to the verification endpoint with retry.
// A definitive "not received" answer is not retried.
func (s *VerificationService) VerifyPayment(ctx context.Context, session model.PaymentSession) error {
	payload := &model.VerificationRequest{
		SessionID:  session.ID,
		CampaignID: session.CampaignID,
		Method:     session.Method,
		Total:      session.Total,
		ExpiresAt:  session.ExpiresAt,
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := s.backoff(attempt)
			s.logger.Warn("Retrying payment verification",
				"session_id", session.ID,
				"attempt", attempt+1,
				"backoff_seconds", backoff.Seconds(),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := s.send(ctx, payload)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Payment verified", "session_id", session.ID, "attempt", attempt+1)
			}
			return nil
		}

		var notReceived *ErrPaymentNotReceived
		if errors.As(err, &notReceived) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		s.logger.Warn("Payment verification attempt failed",
			"session_id", session.ID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return fmt.Errorf("verification failed after %d attempts: %w",
		s.config.RetryCount+1, lastErr)
}

// send performs the actual HTTP request to the verification endpoint
func (s *VerificationService) send(ctx context.Context, payload *model.VerificationRequest) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "doneasy-checkout/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var body model.VerificationResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return &ErrPaymentNotReceived{Message: body.Message}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	case body.Status != "" && body.Status != "paid":
		return &ErrPaymentNotReceived{Message: body.Message}
	}

	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
}
