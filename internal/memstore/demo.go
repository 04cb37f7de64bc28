package memstore

import (
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
)

// Demo ids for STORE_DRIVER=memory.
const (
	DemoCustomerID = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0001"
	DemoAddressID  = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0002"
	DemoMugID      = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0010"
	DemoShirtID    = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0020"
	DemoSizeID     = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0021"
	DemoSmallID    = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0022"
	DemoLargeID    = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0023"
	DemoColorID    = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0024"
	DemoRedID      = "8f14e45f-ceea-4167-a3b5-1c9d2a7e0025"
)

// SeedDemo loads a small catalog and one customer address.
func (db *DB) SeedDemo() {
	now := db.now()
	db.PutProduct(catalog.Product{ID: DemoMugID, Name: "Enamel Mug", Price: decimal.RequireFromString("10.99"), Stock: 20, CreatedAt: now, UpdatedAt: now})
	db.PutProduct(catalog.Product{ID: DemoShirtID, Name: "Linen Shirt", Price: decimal.RequireFromString("10.00"), Stock: 50, CreatedAt: now, UpdatedAt: now})
	db.PutOptionType(catalog.OptionType{ID: DemoSizeID, ProductID: DemoShirtID, Name: "Size"})
	db.PutOptionType(catalog.OptionType{ID: DemoColorID, ProductID: DemoShirtID, Name: "Color"})
	db.PutOptionValue(catalog.OptionValue{ID: DemoSmallID, OptionTypeID: DemoSizeID, Value: "Small", PriceDelta: decimal.Zero, Stock: 8})
	db.PutOptionValue(catalog.OptionValue{ID: DemoLargeID, OptionTypeID: DemoSizeID, Value: "Large", PriceDelta: decimal.RequireFromString("5.00"), Stock: 30})
	db.PutOptionValue(catalog.OptionValue{ID: DemoRedID, OptionTypeID: DemoColorID, Value: "Red", PriceDelta: decimal.RequireFromString("1.50"), Stock: 40})
	db.PutAddress(DemoCustomerID, orders.Address{
		ID: DemoAddressID, FullName: "Demo Customer", Phone: "+62 811 0000 0000",
		Line1: "Jl. Asia Afrika 8", City: "Bandung", PostalCode: "40111", Country: "ID",
	})
}
