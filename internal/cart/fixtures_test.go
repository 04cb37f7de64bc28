package cart_test

import (
	"context"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/memstore"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	customer = "5b1f7a2e-0c43-4a57-9b8e-3f0d8a1c6e01"

	mugID   = "0b8e4c1a-1111-4d2e-8f00-000000000001"
	shirtID = "0b8e4c1a-2222-4d2e-8f00-000000000002"
	sizeID  = "0b8e4c1a-3333-4d2e-8f00-000000000003"
	colorID = "0b8e4c1a-4444-4d2e-8f00-000000000004"
	largeID = "0b8e4c1a-5555-4d2e-8f00-000000000005"
	smallID = "0b8e4c1a-6666-4d2e-8f00-000000000006"
	redID   = "0b8e4c1a-7777-4d2e-8f00-000000000007"
	emptyID = "0b8e4c1a-8888-4d2e-8f00-000000000008"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed: a mug without options (10.99 x 20), a shirt (10.00 x 50) with Size
// {Large +5.00 x 30, Small 0 x 8} and Color {Red +1.50 x 12}, and a sold out
// product.
func seed() *memstore.DB {
	db := memstore.New()
	db.PutProduct(catalog.Product{ID: mugID, Name: "Mug", Price: money("10.99"), Stock: 20})
	db.PutProduct(catalog.Product{ID: shirtID, Name: "Shirt", Price: money("10.00"), Stock: 50})
	db.PutProduct(catalog.Product{ID: emptyID, Name: "Sold Out", Price: money("3.00"), Stock: 0})
	db.PutOptionType(catalog.OptionType{ID: sizeID, ProductID: shirtID, Name: "Size"})
	db.PutOptionType(catalog.OptionType{ID: colorID, ProductID: shirtID, Name: "Color"})
	db.PutOptionValue(catalog.OptionValue{ID: largeID, OptionTypeID: sizeID, Value: "Large", PriceDelta: money("5.00"), Stock: 30})
	db.PutOptionValue(catalog.OptionValue{ID: smallID, OptionTypeID: sizeID, Value: "Small", PriceDelta: decimal.Zero, Stock: 8})
	db.PutOptionValue(catalog.OptionValue{ID: redID, OptionTypeID: colorID, Value: "Red", PriceDelta: money("1.50"), Stock: 12})
	return db
}

func newEngine(t *testing.T, db *memstore.DB) *cart.Engine {
	t.Helper()
	return cart.NewEngine(db.Catalog(), db.Carts(), cart.NewLocalLocker(), zerolog.Nop())
}

func ctx() context.Context { return context.Background() }
