package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

// Store is the read side of the catalog. Catalog writes belong to the admin
// service and never happen here.
type Store interface {
	// GetProduct returns soft-deleted products too; a missing row is NotFound.
	GetProduct(ctx context.Context, id string) (Product, error)
	// GetProducts silently omits ids without a row.
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	// OptionTypes returns the non-deleted option types keyed by product id.
	OptionTypes(ctx context.Context, productIDs []string) (map[string][]OptionType, error)
	// OptionValues returns the non-deleted option values keyed by id.
	OptionValues(ctx context.Context, ids []string) (map[string]OptionValue, error)
}

// Resolution is the effective view of a product under one option selection.
type Resolution struct {
	Price     decimal.Decimal
	Stock     int
	OptionIDs []string
	Options   []SelectedOption
}

// NormalizeOptionIDs trims, drops blanks, dedupes and sorts. The result is
// never nil so that "no options" has a single representation.
func NormalizeOptionIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve validates a selection against a product's option types and computes
// effective price (base + deltas) and stock (minimum over product and every
// selected value). values must only hold non-deleted rows.
func Resolve(p Product, types []OptionType, values map[string]OptionValue, optionIDs []string) (Resolution, error) {
	ids := NormalizeOptionIDs(optionIDs)
	if len(types) == 0 && len(ids) > 0 {
		return Resolution{}, apperr.Validation("product has no options")
	}

	typeByID := make(map[string]OptionType, len(types))
	for _, t := range types {
		typeByID[t.ID] = t
	}

	res := Resolution{
		Price:     p.Price,
		Stock:     p.Stock,
		OptionIDs: ids,
		Options:   make([]SelectedOption, 0, len(ids)),
	}
	covered := make(map[string]bool, len(types))
	for _, id := range ids {
		v, ok := values[id]
		if !ok || v.Deleted() {
			return Resolution{}, apperr.NotFound("option value %s not found", id)
		}
		t, ok := typeByID[v.OptionTypeID]
		if !ok {
			return Resolution{}, apperr.Validation("option value %s does not belong to product %s", id, p.ID)
		}
		covered[t.ID] = true
		res.Price = res.Price.Add(v.PriceDelta)
		if v.Stock < res.Stock {
			res.Stock = v.Stock
		}
		res.Options = append(res.Options, SelectedOption{
			OptionTypeID: t.ID,
			OptionType:   t.Name,
			ValueID:      v.ID,
			Value:        v.Value,
			PriceDelta:   v.PriceDelta,
		})
	}

	var missing []string
	for _, t := range types {
		if !covered[t.ID] {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		return Resolution{}, apperr.Validation("missing selection for option: %s", strings.Join(missing, ", "))
	}
	if res.Stock < 0 {
		res.Stock = 0
	}
	return res, nil
}

type Resolver struct {
	Store Store
}

func NewResolver(s Store) *Resolver { return &Resolver{Store: s} }

// Resolve fetches the option types and selected values of p and resolves them.
func (r *Resolver) Resolve(ctx context.Context, p Product, optionIDs []string) (Resolution, error) {
	byProduct, err := r.Store.OptionTypes(ctx, []string{p.ID})
	if err != nil {
		return Resolution{}, fmt.Errorf("load option types: %w", err)
	}
	ids := NormalizeOptionIDs(optionIDs)
	var values map[string]OptionValue
	if len(ids) > 0 {
		values, err = r.Store.OptionValues(ctx, ids)
		if err != nil {
			return Resolution{}, fmt.Errorf("load option values: %w", err)
		}
	}
	return Resolve(p, byProduct[p.ID], values, ids)
}
