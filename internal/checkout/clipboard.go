package checkout

import (
	"fmt"

	"doneasy-checkout/pkg/logger"
)

// Clipboard copies text to the system clipboard
type Clipboard interface {
	WriteAll(text string) error
}

// SettlementOptionAt returns the account number of option index in s, which
// must be a payment or confirming step.
func SettlementOptionAt(s State, index int) (string, error) {
	var ch Channel
	switch st := s.(type) {
	case PaymentStep:
		ch = st.Channel
	case ConfirmingStep:
		ch = st.Channel
	default:
		return "", ErrInvalidTransition
	}
	if index < 0 || index >= len(ch.SettlementOptions) {
		return "", fmt.Errorf("settlement option %d out of range", index)
	}
	return ch.SettlementOptions[index].AccountNumber, nil
}

// CopySettlement copies the account number of option index to clip. A
// clipboard failure is logged and reported as copied=false; it never affects
// the checkout.
func CopySettlement(clip Clipboard, s State, index int, log *logger.Logger) (account string, copied bool, err error) {
	account, err = SettlementOptionAt(s, index)
	if err != nil {
		return "", false, err
	}
	if clip == nil {
		return account, false, nil
	}
	if err := clip.WriteAll(account); err != nil {
		if log != nil {
			log.Warn("Failed to copy account number", "error", err)
		}
		return account, false, nil
	}
	return account, true, nil
}
