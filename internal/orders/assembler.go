package orders

import (
	"sort"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/shopspring/decimal"
)

type Pricing struct {
	Currency string
	// TaxRate is a fraction of the subtotal, e.g. 0.08.
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		Currency:              "USD",
		TaxRate:               decimal.RequireFromString("0.08"),
		ShippingFee:           decimal.RequireFromString("10.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
	}
}

// Totals returns tax, shipping and grand total for subtotal, each rounded to
// cents. Shipping is waived strictly above the threshold.
func (p Pricing) Totals(subtotal decimal.Decimal) (tax, shipping, total decimal.Decimal) {
	subtotal = subtotal.Round(2)
	tax = subtotal.Mul(p.TaxRate).Round(2)
	shipping = p.ShippingFee.Round(2)
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total = subtotal.Add(tax).Add(shipping).Round(2)
	return tax, shipping, total
}

// Assemble snapshots an aggregated cart into a pending order. Any unavailable
// line, or a line asking for more than is in stock, rejects the whole cart.
func Assemble(id, customerID string, view cart.View, addr Address, method PaymentMethod, pricing Pricing, now time.Time) (Order, error) {
	if view.Count == 0 {
		return Order{}, apperr.Validation("cart is empty")
	}
	if it, blocked := view.Unavailable(); blocked {
		return Order{}, apperr.Conflict("product %q is unavailable, remove it from the cart to continue", it.Name)
	}

	items := make([]Item, 0, len(view.Items))
	subtotal := decimal.Zero
	for _, it := range view.Items {
		if it.Quantity > it.Stock {
			return Order{}, apperr.InsufficientStock(it.Name, it.Stock, it.Quantity)
		}
		items = append(items, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			OptionIDs: it.OptionIDs,
			Options:   it.Options,
			Subtotal:  it.Subtotal,
		})
		subtotal = subtotal.Add(it.Subtotal)
	}
	subtotal = subtotal.Round(2)
	tax, shipping, total := pricing.Totals(subtotal)

	o := Order{
		ID:         id,
		CustomerID: customerID,
		Items:      items,
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Total:      total,
		Currency:   pricing.Currency,
		Address:    addr,
		Status:     StatusPending,
		Payment: Payment{
			Method: method,
			Status: PaymentPending,
			Amount: total,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Sync()
	return o, nil
}

// Holds sums the stock an order takes per product and per option value,
// sorted so that concurrent reservations lock rows in the same order.
func Holds(items []Item) []Hold {
	type key struct {
		kind HoldKind
		id   string
	}
	acc := map[key]*Hold{}
	add := func(kind HoldKind, id, label string, qty int) {
		k := key{kind, id}
		if h, ok := acc[k]; ok {
			h.Qty += qty
			return
		}
		acc[k] = &Hold{Kind: kind, ID: id, Label: label, Qty: qty}
	}
	for _, it := range items {
		add(HoldProduct, it.ProductID, it.Name, it.Quantity)
		for _, o := range it.Options {
			add(HoldOptionValue, o.ValueID, it.Name+" / "+o.Value, it.Quantity)
		}
	}

	out := make([]Hold, 0, len(acc))
	for _, h := range acc {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}
