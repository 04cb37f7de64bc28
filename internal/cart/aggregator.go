package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

type Item struct {
	ProductID   string                   `json:"productId"`
	Name        string                   `json:"name"`
	ImageURL    string                   `json:"imageUrl,omitempty"`
	BasePrice   decimal.Decimal          `json:"basePrice"`
	UnitPrice   decimal.Decimal          `json:"unitPrice"`
	Quantity    int                      `json:"quantity"`
	OptionIDs   []string                 `json:"selectedOptions"`
	Options     []catalog.SelectedOption `json:"options"`
	Subtotal    decimal.Decimal          `json:"subtotal"`
	Stock       int                      `json:"stock"`
	IsAvailable bool                     `json:"isAvailable"`
	// Issue explains why a line cannot be resolved any more, e.g. an option
	// value was deleted after the line was added.
	Issue string `json:"issue,omitempty"`
}

type View struct {
	Items       []Item          `json:"items"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Unavailable returns the first line that blocks checkout, if any.
func (v View) Unavailable() (Item, bool) {
	for _, it := range v.Items {
		if !it.IsAvailable {
			return it, true
		}
	}
	return Item{}, false
}

// Aggregator builds the customer-facing cart from live catalog data. It never
// writes.
type Aggregator struct {
	Catalog catalog.Store
}

func NewAggregator(s catalog.Store) *Aggregator { return &Aggregator{Catalog: s} }

func (a *Aggregator) Aggregate(ctx context.Context, c *Cart) (View, error) {
	view := View{Items: []Item{}, TotalAmount: decimal.Zero, UpdatedAt: c.UpdatedAt}
	if c.Empty() {
		return view, nil
	}

	productIDs := make([]string, 0, len(c.Lines))
	var optionIDs []string
	for _, l := range c.Lines {
		productIDs = append(productIDs, l.ProductID)
		optionIDs = append(optionIDs, l.OptionIDs...)
	}
	productIDs = catalog.NormalizeOptionIDs(productIDs)
	optionIDs = catalog.NormalizeOptionIDs(optionIDs)

	products, err := a.Catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return View{}, fmt.Errorf("aggregate cart: %w", err)
	}
	types, err := a.Catalog.OptionTypes(ctx, productIDs)
	if err != nil {
		return View{}, fmt.Errorf("aggregate cart: %w", err)
	}
	values, err := a.Catalog.OptionValues(ctx, optionIDs)
	if err != nil {
		return View{}, fmt.Errorf("aggregate cart: %w", err)
	}

	total := decimal.Zero
	for _, l := range c.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			// orphaned reference, hidden from the customer
			continue
		}
		it := Item{
			ProductID: p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			BasePrice: p.Price.Round(2),
			Quantity:  l.Quantity,
			OptionIDs: l.Combination().IDs(),
			Options:   []catalog.SelectedOption{},
		}
		price := p.Price
		res, err := catalog.Resolve(p, types[p.ID], values, l.OptionIDs)
		switch {
		case err == nil:
			price = res.Price
			it.Stock = res.Stock
			it.Options = res.Options
		case apperr.Is(err, apperr.KindValidation) || apperr.Is(err, apperr.KindNotFound):
			it.Issue = err.Error()
		default:
			return View{}, fmt.Errorf("aggregate cart: %w", err)
		}
		it.UnitPrice = price.Round(2)
		it.Subtotal = price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		it.IsAvailable = it.Stock > 0 && !p.Deleted()
		if it.IsAvailable {
			total = total.Add(it.Subtotal)
		}
		view.Items = append(view.Items, it)
	}
	view.Count = len(view.Items)
	view.TotalAmount = total.Round(2)
	return view, nil
}
