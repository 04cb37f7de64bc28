package cart

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultMaxQuantity = 999

// Repo persists carts. There is exactly one cart per customer.
type Repo interface {
	// GetOrCreate returns the customer's cart, creating an empty one on first access.
	GetOrCreate(ctx context.Context, customerID string) (*Cart, error)
	// Save writes c if its Version is still current and bumps c.Version.
	// A stale version is reported as Conflict.
	Save(ctx context.Context, c *Cart) error
}

// Engine applies cart mutations against live catalog data. Every mutation
// holds the customer's cart lock for its whole read-check-write sequence.
type Engine struct {
	Catalog     catalog.Store
	Carts       Repo
	Resolver    *catalog.Resolver
	Aggregator  *Aggregator
	Locker      Locker
	MaxQuantity int
	Log         zerolog.Logger
}

func NewEngine(store catalog.Store, carts Repo, locker Locker, log zerolog.Logger) *Engine {
	return &Engine{
		Catalog:     store,
		Carts:       carts,
		Resolver:    catalog.NewResolver(store),
		Aggregator:  NewAggregator(store),
		Locker:      locker,
		MaxQuantity: DefaultMaxQuantity,
		Log:         log.With().Str("component", "cart").Logger(),
	}
}

func (e *Engine) View(ctx context.Context, customerID string) (View, error) {
	c, err := e.Carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	return e.Aggregator.Aggregate(ctx, c)
}

func (e *Engine) Add(ctx context.Context, customerID, productID string, quantity int, optionIDs []string) (View, error) {
	productID, optionIDs, err := e.canonical(productID, optionIDs)
	if err != nil {
		return View{}, err
	}
	if err := e.validateQuantity(quantity); err != nil {
		return View{}, err
	}

	unlock, err := e.Locker.Lock(ctx, LockKey(customerID))
	if err != nil {
		return View{}, err
	}
	defer unlock()

	p, err := e.liveProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if p.Stock == 0 {
		return View{}, apperr.OutOfStock(p.Name, quantity)
	}
	res, err := e.Resolver.Resolve(ctx, p, optionIDs)
	if err != nil {
		return View{}, err
	}

	c, err := e.Carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	comb := NewCombination(res.OptionIDs)
	existing := c.QuantityOf(p.ID, comb)
	if existing+quantity > res.Stock {
		return View{}, apperr.InsufficientStock(p.Name, res.Stock, existing+quantity)
	}

	if i := c.Find(p.ID, comb); i >= 0 {
		c.Lines[i].Quantity += quantity
	} else {
		c.Lines = append(c.Lines, Line{ProductID: p.ID, Quantity: quantity, OptionIDs: res.OptionIDs})
	}
	if err := e.Carts.Save(ctx, c); err != nil {
		return View{}, err
	}
	e.Log.Debug().Str("customer_id", customerID).Str("product_id", p.ID).Int("qty", existing+quantity).Msg("cart line added")
	return e.Aggregator.Aggregate(ctx, c)
}

// UpdateQuantity sets the absolute quantity of an existing line.
func (e *Engine) UpdateQuantity(ctx context.Context, customerID, productID string, quantity int, optionIDs []string) (View, error) {
	productID, optionIDs, err := e.canonical(productID, optionIDs)
	if err != nil {
		return View{}, err
	}
	if err := e.validateQuantity(quantity); err != nil {
		return View{}, err
	}

	unlock, err := e.Locker.Lock(ctx, LockKey(customerID))
	if err != nil {
		return View{}, err
	}
	defer unlock()

	c, err := e.Carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	i := c.Find(productID, NewCombination(optionIDs))
	if i < 0 {
		return View{}, apperr.NotFound("product %s not in cart", productID)
	}

	p, err := e.liveProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	res, err := e.Resolver.Resolve(ctx, p, optionIDs)
	if err != nil {
		return View{}, err
	}
	if quantity > res.Stock {
		return View{}, apperr.InsufficientStock(p.Name, res.Stock, quantity)
	}

	c.Lines[i].Quantity = quantity
	if err := e.Carts.Save(ctx, c); err != nil {
		return View{}, err
	}
	e.Log.Debug().Str("customer_id", customerID).Str("product_id", p.ID).Int("qty", quantity).Msg("cart line updated")
	return e.Aggregator.Aggregate(ctx, c)
}

// Remove deletes one line. Products with option types need optionIDs, since
// several lines may share the product.
func (e *Engine) Remove(ctx context.Context, customerID, productID string, optionIDs []string) (View, error) {
	productID, optionIDs, err := e.canonical(productID, optionIDs)
	if err != nil {
		return View{}, err
	}

	unlock, err := e.Locker.Lock(ctx, LockKey(customerID))
	if err != nil {
		return View{}, err
	}
	defer unlock()

	comb := NewCombination(optionIDs)
	if comb == NoOptions {
		types, err := e.Catalog.OptionTypes(ctx, []string{productID})
		if err != nil {
			return View{}, fmt.Errorf("remove cart line: %w", err)
		}
		if len(types[productID]) > 0 {
			return View{}, apperr.Validation("selectedOptions is required for products with options")
		}
	}

	c, err := e.Carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	i := c.Find(productID, comb)
	if i < 0 {
		return View{}, apperr.NotFound("product %s not in cart", productID)
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	if err := e.Carts.Save(ctx, c); err != nil {
		return View{}, err
	}
	e.Log.Debug().Str("customer_id", customerID).Str("product_id", productID).Msg("cart line removed")
	return e.Aggregator.Aggregate(ctx, c)
}

func (e *Engine) liveProduct(ctx context.Context, productID string) (catalog.Product, error) {
	p, err := e.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return catalog.Product{}, err
	}
	if p.Deleted() {
		return catalog.Product{}, apperr.NotFound("product %s not found", productID)
	}
	return p, nil
}

// canonical parses the ids and returns them in lowercase hyphenated form, so
// braced or uppercase spellings address the same line.
func (e *Engine) canonical(productID string, optionIDs []string) (string, []string, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return "", nil, apperr.Validation("invalid product id %q", productID)
	}
	var opts []string
	if len(optionIDs) > 0 {
		opts = make([]string, len(optionIDs))
	}
	for i, id := range optionIDs {
		oid, err := uuid.Parse(id)
		if err != nil {
			return "", nil, apperr.Validation("invalid option id %q", id)
		}
		opts[i] = oid.String()
	}
	return pid.String(), opts, nil
}

func (e *Engine) validateQuantity(q int) error {
	max := e.MaxQuantity
	if max <= 0 {
		max = DefaultMaxQuantity
	}
	if q < 1 || q > max {
		return apperr.Validation("quantity must be between 1 and %d", max)
	}
	return nil
}
