package service

import (
	"context"
	"errors"

	"doneasy-checkout/internal/model"
)

// ReceiptNotifier delivers a confirmation receipt somewhere outside the checkout
type ReceiptNotifier interface {
	NotifyConfirmation(ctx context.Context, record *model.ConfirmationRecord) error
}

// ErrNoRecipient is returned by notifiers that have nobody to send a receipt to
var ErrNoRecipient = errors.New("no recipient for receipt")
