package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TransactionIDPrefix is shown in front of every transaction id
const TransactionIDPrefix = "TRX"

// NewTransactionID returns a TRX-prefixed id built from a UUIDv7, which is
// time ordered and carries 74 random bits.
func NewTransactionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return TransactionIDPrefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}

// NewSessionID returns a random id for flows and payment sessions
func NewSessionID() string {
	return uuid.NewString()
}
