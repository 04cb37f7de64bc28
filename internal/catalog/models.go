package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID string          `json:"categoryId,omitempty"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	DeletedAt  *time.Time      `json:"deletedAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (p Product) Deleted() bool { return p.DeletedAt != nil }

// OptionType is one selectable dimension of a product, e.g. "Size".
type OptionType struct {
	ID        string     `json:"id"`
	ProductID string     `json:"productId"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// OptionValue is one choice within an OptionType. Its stock is tracked
// independently of the product stock.
type OptionValue struct {
	ID           string          `json:"id"`
	OptionTypeID string          `json:"optionTypeId"`
	Value        string          `json:"value"`
	PriceDelta   decimal.Decimal `json:"priceDelta"`
	Stock        int             `json:"stock"`
	DeletedAt    *time.Time      `json:"deletedAt,omitempty"`
}

func (v OptionValue) Deleted() bool { return v.DeletedAt != nil }

// SelectedOption is the typed join of an option value with its type, used in
// cart views and order snapshots.
type SelectedOption struct {
	OptionTypeID string          `json:"optionTypeId"`
	OptionType   string          `json:"optionType"`
	ValueID      string          `json:"valueId"`
	Value        string          `json:"value"`
	PriceDelta   decimal.Decimal `json:"priceDelta"`
}
