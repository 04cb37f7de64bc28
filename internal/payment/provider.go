package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentSucceeded            IntentStatus = "succeeded"
	IntentCanceled             IntentStatus = "canceled"
	IntentRefunded             IntentStatus = "refunded"
)

var (
	ErrIntentNotFound = errors.New("payment intent not found")
	ErrInvalidState   = errors.New("payment intent in invalid state")
)

type IntentRequest struct {
	OrderID         string
	CustomerID      string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
}

type Intent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	OrderID      string          `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       IntentStatus    `json:"status"`
	RefundID     string          `json:"refund_id,omitempty"`
}

type Refund struct {
	ID       string
	IntentID string
	Amount   decimal.Decimal
}

// Provider is the contract the checkout core expects from a payment gateway.
// The client secret lets the storefront front end confirm the intent directly
// with the provider.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	CancelIntent(ctx context.Context, id string) error
	// Refund must be idempotent per intent.
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) (Refund, error)
}
