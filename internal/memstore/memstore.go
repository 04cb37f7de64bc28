// Package memstore keeps catalog, carts, orders and addresses in memory
// behind one mutex. It backs STORE_DRIVER=memory and the tests.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type DB struct {
	mu           sync.Mutex
	products     map[string]catalog.Product
	optionTypes  map[string]catalog.OptionType
	optionValues map[string]catalog.OptionValue
	carts        map[string]cart.Cart
	orders       map[string]orders.Order
	reservations map[string][]orders.Hold
	addresses    map[string]addressRow
	now          func() time.Time
}

type addressRow struct {
	customerID string
	addr       orders.Address
}

func New() *DB {
	return &DB{
		products:     map[string]catalog.Product{},
		optionTypes:  map[string]catalog.OptionType{},
		optionValues: map[string]catalog.OptionValue{},
		carts:        map[string]cart.Cart{},
		orders:       map[string]orders.Order{},
		reservations: map[string][]orders.Hold{},
		addresses:    map[string]addressRow{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (db *DB) Catalog() *Catalog     { return &Catalog{db} }
func (db *DB) Carts() *Carts         { return &Carts{db} }
func (db *DB) Orders() *Orders       { return &Orders{db} }
func (db *DB) Addresses() *Addresses { return &Addresses{db} }

// ---- seeding ----

func (db *DB) PutProduct(p catalog.Product) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.products[p.ID] = p
}

func (db *DB) PutOptionType(t catalog.OptionType) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.optionTypes[t.ID] = t
}

func (db *DB) PutOptionValue(v catalog.OptionValue) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.optionValues[v.ID] = v
}

func (db *DB) PutAddress(customerID string, a orders.Address) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.addresses[a.ID] = addressRow{customerID: customerID, addr: a}
}

func (db *DB) DeleteAddress(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.addresses, id)
}

func (db *DB) SoftDeleteProduct(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.products[id]; ok {
		at := db.now()
		p.DeletedAt = &at
		db.products[id] = p
	}
}

// PurgeProduct removes the row entirely, leaving dangling cart references.
func (db *DB) PurgeProduct(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.products, id)
}

func (db *DB) SetProductStock(id string, stock int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.products[id]; ok {
		p.Stock = stock
		db.products[id] = p
	}
}

func (db *DB) SetOptionStock(id string, stock int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if v, ok := db.optionValues[id]; ok {
		v.Stock = stock
		db.optionValues[id] = v
	}
}

func (db *DB) Product(id string) catalog.Product {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.products[id]
}

func (db *DB) OptionValue(id string) catalog.OptionValue {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.optionValues[id]
}

// ---- catalog ----

type Catalog struct{ db *DB }

func (c *Catalog) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	p, ok := c.db.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (c *Catalog) GetProducts(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.db.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *Catalog) OptionTypes(_ context.Context, productIDs []string) (map[string][]catalog.OptionType, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	out := map[string][]catalog.OptionType{}
	for _, t := range c.db.optionTypes {
		if want[t.ProductID] && t.DeletedAt == nil {
			out[t.ProductID] = append(out[t.ProductID], t)
		}
	}
	for pid := range out {
		ts := out[pid]
		sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
	}
	return out, nil
}

func (c *Catalog) OptionValues(_ context.Context, ids []string) (map[string]catalog.OptionValue, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	out := make(map[string]catalog.OptionValue, len(ids))
	for _, id := range ids {
		if v, ok := c.db.optionValues[id]; ok && !v.Deleted() {
			out[id] = v
		}
	}
	return out, nil
}

// ---- carts ----

type Carts struct{ db *DB }

func copyCart(c cart.Cart) *cart.Cart {
	lines := make([]cart.Line, len(c.Lines))
	for i, l := range c.Lines {
		l.OptionIDs = append([]string{}, l.OptionIDs...)
		lines[i] = l
	}
	c.Lines = lines
	return &c
}

func (r *Carts) GetOrCreate(_ context.Context, customerID string) (*cart.Cart, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.carts[customerID]
	if !ok {
		now := r.db.now()
		c = cart.Cart{CustomerID: customerID, Lines: []cart.Line{}, CreatedAt: now, UpdatedAt: now}
		r.db.carts[customerID] = c
	}
	return copyCart(c), nil
}

func (r *Carts) Save(_ context.Context, c *cart.Cart) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.carts[c.CustomerID]
	if !ok || cur.Version != c.Version {
		return apperr.Conflict("cart was modified concurrently, please retry")
	}
	c.Version++
	c.UpdatedAt = r.db.now()
	r.db.carts[c.CustomerID] = *copyCart(*c)
	return nil
}

// ---- addresses ----

type Addresses struct{ db *DB }

func (a *Addresses) Get(_ context.Context, customerID, addressID string) (orders.Address, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	row, ok := a.db.addresses[addressID]
	if !ok || row.customerID != customerID {
		return orders.Address{}, apperr.NotFound("address %s not found", addressID)
	}
	return row.addr, nil
}

// ---- orders ----

type Orders struct{ db *DB }

// orders are deep-copied through JSON so callers never share slices with the store
func cloneOrder(o orders.Order) *orders.Order {
	b, _ := json.Marshal(o)
	var out orders.Order
	_ = json.Unmarshal(b, &out)
	out.Sync()
	return &out
}

func (r *Orders) Create(_ context.Context, o *orders.Order, holds []orders.Hold, cartVersion int) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, h := range holds {
		switch h.Kind {
		case orders.HoldProduct:
			p, ok := db.products[h.ID]
			if !ok || p.Deleted() || p.Stock < h.Qty {
				return apperr.InsufficientStock(h.Label, max(p.Stock, 0), h.Qty)
			}
		case orders.HoldOptionValue:
			v, ok := db.optionValues[h.ID]
			if !ok || v.Deleted() || v.Stock < h.Qty {
				return apperr.InsufficientStock(h.Label, max(v.Stock, 0), h.Qty)
			}
		}
	}
	c, ok := db.carts[o.CustomerID]
	if !ok || c.Version != cartVersion {
		return apperr.Conflict("cart changed during checkout, please review it and retry")
	}

	for _, h := range holds {
		switch h.Kind {
		case orders.HoldProduct:
			p := db.products[h.ID]
			p.Stock -= h.Qty
			db.products[h.ID] = p
		case orders.HoldOptionValue:
			v := db.optionValues[h.ID]
			v.Stock -= h.Qty
			db.optionValues[h.ID] = v
		}
	}
	db.reservations[o.ID] = append([]orders.Hold{}, holds...)
	db.orders[o.ID] = *cloneOrder(*o)
	c.Lines = []cart.Line{}
	c.Version++
	c.UpdatedAt = db.now()
	db.carts[o.CustomerID] = c
	return nil
}

func (r *Orders) Get(_ context.Context, id string) (*orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, apperr.NotFound("order %s not found", id)
	}
	return cloneOrder(o), nil
}

func (r *Orders) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]orders.Order, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []orders.Order
	for _, o := range r.db.orders {
		if o.CustomerID == customerID {
			all = append(all, *cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return []orders.Order{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *Orders) Cancel(_ context.Context, id string, from orders.Status, payFrom, payTo orders.PaymentStatus, reason string, at time.Time) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()
	o, ok := db.orders[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	if o.Status != from || o.Payment.Status != payFrom {
		return apperr.Conflict("order %s changed concurrently, please retry", id)
	}
	for _, h := range db.reservations[id] {
		switch h.Kind {
		case orders.HoldProduct:
			if p, ok := db.products[h.ID]; ok {
				p.Stock += h.Qty
				db.products[h.ID] = p
			}
		case orders.HoldOptionValue:
			if v, ok := db.optionValues[h.ID]; ok {
				v.Stock += h.Qty
				db.optionValues[h.ID] = v
			}
		}
	}
	delete(db.reservations, id)
	o.Status = orders.StatusCancelled
	o.Payment.Status = payTo
	o.CancelReason = reason
	o.CancelledAt = &at
	o.UpdatedAt = at
	o.Sync()
	db.orders[id] = o
	return nil
}

func (r *Orders) UpdateStatus(_ context.Context, id string, from, to orders.Status, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return apperr.Conflict("order %s is no longer %s", id, from)
	}
	o.Status = to
	o.UpdatedAt = at
	o.Sync()
	r.db.orders[id] = o
	return nil
}

func (r *Orders) UpdatePayment(_ context.Context, id string, from, to orders.PaymentStatus, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	if o.Payment.Status != from {
		return apperr.Conflict("payment of order %s is no longer %s", id, from)
	}
	o.Payment.Status = to
	if to == orders.PaymentCompleted {
		o.Payment.PaidAt = &at
	}
	o.UpdatedAt = at
	r.db.orders[id] = o
	return nil
}

func (r *Orders) ListRefundPending(_ context.Context, cancelledBefore time.Time, limit int) ([]orders.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []orders.Order
	for _, o := range r.db.orders {
		if o.Payment.Status == orders.PaymentRefundPending && o.CancelledAt != nil && o.CancelledAt.Before(cancelledBefore) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CancelledAt.Equal(*out[j].CancelledAt) {
			return out[i].CancelledAt.Before(*out[j].CancelledAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- idempotency ----

// Idempotency maps Idempotency-Key headers to order ids in process. Entries
// expire after TTL like their Redis counterparts.
type Idempotency struct {
	mu   sync.Mutex
	keys map[string]idemEntry
	TTL  time.Duration
	now  func() time.Time
}

type idemEntry struct {
	orderID string
	expires time.Time
}

func NewIdempotency(ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{keys: map[string]idemEntry{}, TTL: ttl, now: time.Now}
}

func (i *Idempotency) Lookup(_ context.Context, customerID, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	k := customerID + ":" + key
	e, ok := i.keys[k]
	if !ok {
		return "", false, nil
	}
	if !i.now().Before(e.expires) {
		delete(i.keys, k)
		return "", false, nil
	}
	return e.orderID, true, nil
}

func (i *Idempotency) Remember(_ context.Context, customerID, key, orderID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[customerID+":"+key] = idemEntry{orderID: orderID, expires: i.now().Add(i.TTL)}
	return nil
}
