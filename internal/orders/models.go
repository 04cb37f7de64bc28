package orders

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Item is the financial snapshot of one cart line at checkout. It is never
// re-priced afterwards.
type Item struct {
	ProductID string                   `json:"productId"`
	Name      string                   `json:"name"`
	UnitPrice decimal.Decimal          `json:"unitPrice"`
	Quantity  int                      `json:"quantity"`
	OptionIDs []string                 `json:"selectedOptions"`
	Options   []catalog.SelectedOption `json:"options"`
	Subtotal  decimal.Decimal          `json:"subtotal"`
}

// Address is copied into the order so it survives deletion of the source
// address.
type Address struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Payment struct {
	Method      PaymentMethod   `json:"method"`
	Status      PaymentStatus   `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef string          `json:"providerReference,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
}

type Order struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	Items        []Item          `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	Address      Address         `json:"address"`
	Status       Status          `json:"status"`
	Payment      Payment         `json:"payment"`
	CanCancel    bool            `json:"canCancel"`
	CancelReason string          `json:"cancelReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	CancelledAt  *time.Time      `json:"cancelledAt,omitempty"`
}

// Sync recomputes fields derived from Status.
func (o *Order) Sync() { o.CanCancel = o.Status.Cancellable() }

// RefundInfo is returned when cancelling a paid order. The refund itself runs
// asynchronously.
type RefundInfo struct {
	Amount      decimal.Decimal `json:"amount"`
	Status      PaymentStatus   `json:"status"`
	ProviderRef string          `json:"providerReference,omitempty"`
	Message     string          `json:"message"`
}

type HoldKind string

const (
	HoldProduct     HoldKind = "product"
	HoldOptionValue HoldKind = "option_value"
)

// Hold is stock taken from one product or option value by an order.
type Hold struct {
	Kind  HoldKind `json:"kind"`
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Qty   int      `json:"qty"`
}
