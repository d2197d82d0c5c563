package service

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

// EmailService sends donation receipts to donors through SendGrid
type EmailService struct {
	client *sendgrid.Client
	config *config.EmailConfig
	logger *logger.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.EmailConfig, log *logger.Logger) *EmailService {
	return &EmailService{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		config: cfg,
		logger: log,
	}
}

// NotifyConfirmation emails the receipt to the donor's address, if one was given
func (s *EmailService) NotifyConfirmation(ctx context.Context, record *model.ConfirmationRecord) error {
	message, err := s.buildMessage(record)
	if err != nil {
		return err
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	s.logger.WithTrxID(record.TransactionID).Info("Receipt email sent")
	return nil
}

func (s *EmailService) buildMessage(record *model.ConfirmationRecord) (*mail.SGMailV3, error) {
	p := record.PledgeSnapshot
	if p.DonorEmail == "" {
		return nil, ErrNoRecipient
	}

	from := mail.NewEmail(s.config.FromName, s.config.FromAddress)
	to := mail.NewEmail(p.DonorName, p.DonorEmail)
	subject := fmt.Sprintf("Bukti Donasi %s", record.TransactionID)
	text := FormatReceipt(record)
	body := "<pre>" + html.EscapeString(text) + "</pre>"

	return mail.NewSingleEmail(from, subject, to, text, body), nil
}
