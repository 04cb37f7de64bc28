package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventPaymentConfirmed   = "PaymentConfirmed"
	EventPaymentRefunded    = "PaymentRefunded"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// EventSink publishes order lifecycle events. Emission is best effort: the
// database stays the source of truth.
type EventSink interface {
	Emit(ctx context.Context, eventType, orderID string, payload any) error
}

type NopEvents struct{}

func (NopEvents) Emit(context.Context, string, string, any) error { return nil }

// ---- payloads ----

type ItemQty struct {
	ProductID string   `json:"product_id"`
	OptionIDs []string `json:"option_ids,omitempty"`
	Qty       int      `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	Items         []ItemQty       `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

type OrderCancelledPayload struct {
	OrderID        string          `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	Reason         string          `json:"reason,omitempty"`
	RefundRequired bool            `json:"refund_required"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	PaymentRef     string          `json:"payment_ref,omitempty"`
}

type PaymentConfirmedPayload struct {
	OrderID    string          `json:"order_id"`
	PaymentRef string          `json:"payment_ref,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

type PaymentRefundedPayload struct {
	OrderID    string          `json:"order_id"`
	PaymentRef string          `json:"payment_ref"`
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

func itemQtys(items []Item) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, OptionIDs: it.OptionIDs, Qty: it.Quantity})
	}
	return out
}
