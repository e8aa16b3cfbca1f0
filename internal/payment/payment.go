// Package payment adapts external payment processors to the two-phase
// create/capture flow used at checkout.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// StatusCompleted is the only capture status that lets an order become paid.
const StatusCompleted = "COMPLETED"

var ErrNotConfigured = errors.New("payment processor not configured")

// Intent is an opened external payment. ClientSecret is only set by processors
// whose browser SDK needs it to confirm the payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Capture is the processor's answer to a capture call, normalized so callers can
// compare ID and Status without knowing which processor produced it.
type Capture struct {
	ID         string
	Status     string
	PayerEmail string
	Amount     decimal.Decimal
}

type Processor interface {
	CreateOrder(ctx context.Context, reference string, amount decimal.Decimal) (*Intent, error)
	Capture(ctx context.Context, externalID string) (*Capture, error)
}
