package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Repo interface {
	// Create takes every hold with a conditional decrement, inserts o and
	// empties the customer's cart (compare-and-swap on cartVersion) in one
	// transaction.
	Create(ctx context.Context, o *Order, holds []Hold, cartVersion int) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, int, error)
	// Cancel moves the order from `from` to cancelled, releases its holds and
	// moves payment payFrom -> payTo.
	Cancel(ctx context.Context, id string, from Status, payFrom, payTo PaymentStatus, reason string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	UpdatePayment(ctx context.Context, id string, from, to PaymentStatus, at time.Time) error
	// ListRefundPending returns refund-pending orders cancelled before the
	// cutoff, oldest first.
	ListRefundPending(ctx context.Context, cancelledBefore time.Time, limit int) ([]Order, error)
}

// AddressBook is owned by the account service; only lookups happen here.
type AddressBook interface {
	Get(ctx context.Context, customerID, addressID string) (Address, error)
}

type Cache interface {
	Get(ctx context.Context, id string) (*Order, bool)
	// Set must not replace an entry with a newer UpdatedAt.
	Set(ctx context.Context, o *Order)
	Invalidate(ctx context.Context, id string)
}

// Idempotency remembers which order a client-supplied key produced.
type Idempotency interface {
	Lookup(ctx context.Context, customerID, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, customerID, key, orderID string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*Order, bool) { return nil, false }
func (nopCache) Set(context.Context, *Order)                {}
func (nopCache) Invalidate(context.Context, string)         {}

type CreateInput struct {
	AddressID               string
	PaymentMethod           string
	ProviderPaymentMethodID string
	IdempotencyKey          string
}

type Created struct {
	Order        Order  `json:"order"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Replayed     bool   `json:"-"`
}

type Page struct {
	Orders []Order
	Total  int
	Page   int
	Limit  int
}

type Service struct {
	Orders      Repo
	Carts       cart.Repo
	Aggregator  *cart.Aggregator
	Locker      cart.Locker
	Addresses   AddressBook
	Payments    payment.Provider
	Events      EventSink
	Cache       Cache
	Idempotency Idempotency
	Pricing     Pricing
	Log         zerolog.Logger
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) cache() Cache {
	if s.Cache == nil {
		return nopCache{}
	}
	return s.Cache
}

func (s *Service) emit(ctx context.Context, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, eventType, orderID, payload); err != nil {
		s.Log.Warn().Err(err).Str("order_id", orderID).Str("event", eventType).Msg("emit event")
	}
}

// Create turns the customer's cart into a pending order. Nothing is committed
// unless stock for every line is reserved.
func (s *Service) Create(ctx context.Context, customerID string, in CreateInput) (Created, error) {
	method, ok := ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return Created{}, apperr.Validation("unsupported payment method %q", in.PaymentMethod)
	}
	addrID, err := uuid.Parse(in.AddressID)
	if err != nil {
		return Created{}, apperr.Validation("invalid address id %q", in.AddressID)
	}
	in.AddressID = addrID.String()

	unlock, err := s.Locker.Lock(ctx, cart.LockKey(customerID))
	if err != nil {
		return Created{}, err
	}
	defer unlock()

	if in.IdempotencyKey != "" && s.Idempotency != nil {
		if id, found, err := s.Idempotency.Lookup(ctx, customerID, in.IdempotencyKey); err != nil {
			s.Log.Warn().Err(err).Msg("idempotency lookup")
		} else if found {
			return s.replay(ctx, customerID, id)
		}
	}

	c, err := s.Carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return Created{}, err
	}
	if c.Empty() {
		return Created{}, apperr.Validation("cart is empty")
	}
	view, err := s.Aggregator.Aggregate(ctx, c)
	if err != nil {
		return Created{}, err
	}
	addr, err := s.Addresses.Get(ctx, customerID, in.AddressID)
	if err != nil {
		return Created{}, err
	}

	o, err := Assemble(uuid.NewString(), customerID, view, addr, method, s.Pricing, s.now())
	if err != nil {
		return Created{}, err
	}

	var secret string
	if method.RequiresIntent() {
		intent, err := s.Payments.CreateIntent(ctx, payment.IntentRequest{
			OrderID:         o.ID,
			CustomerID:      customerID,
			Amount:          o.Total,
			Currency:        o.Currency,
			PaymentMethodID: in.ProviderPaymentMethodID,
		})
		if err != nil {
			return Created{}, apperr.Internal(err, "payment provider unavailable")
		}
		o.Payment.ProviderRef = intent.ID
		secret = intent.ClientSecret
	}

	if err := s.Orders.Create(ctx, &o, Holds(o.Items), c.Version); err != nil {
		if o.Payment.ProviderRef != "" {
			if cerr := s.Payments.CancelIntent(ctx, o.Payment.ProviderRef); cerr != nil {
				s.Log.Warn().Err(cerr).Str("intent", o.Payment.ProviderRef).Msg("cancel orphaned intent")
			}
		}
		return Created{}, err
	}

	if in.IdempotencyKey != "" && s.Idempotency != nil {
		if err := s.Idempotency.Remember(ctx, customerID, in.IdempotencyKey, o.ID); err != nil {
			s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("idempotency remember")
		}
	}
	s.emit(ctx, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:       o.ID,
		CustomerID:    customerID,
		Items:         itemQtys(o.Items),
		Total:         o.Total,
		Currency:      o.Currency,
		PaymentMethod: method,
	})
	s.Log.Info().Str("order_id", o.ID).Str("customer_id", customerID).Str("total", o.Total.StringFixed(2)).Msg("order created")
	return Created{Order: o, ClientSecret: secret}, nil
}

func (s *Service) replay(ctx context.Context, customerID, orderID string) (Created, error) {
	o, err := s.Get(ctx, customerID, orderID)
	if err != nil {
		return Created{}, err
	}
	out := Created{Order: o, Replayed: true}
	if o.Payment.ProviderRef != "" && o.Payment.Status == PaymentPending {
		if intent, err := s.Payments.GetIntent(ctx, o.Payment.ProviderRef); err == nil {
			out.ClientSecret = intent.ClientSecret
		}
	}
	return out, nil
}

// Get returns the order if it belongs to customerID. Other customers' orders
// are reported as missing.
func (s *Service) Get(ctx context.Context, customerID, id string) (Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.CustomerID != customerID {
		return Order{}, apperr.NotFound("order %s not found", id)
	}
	return *o, nil
}

func (s *Service) load(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("order %s not found", id)
	}
	id = uid.String()
	if o, ok := s.cache().Get(ctx, id); ok {
		return o, nil
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Sync()
	s.cache().Set(ctx, o)
	return o, nil
}

// reload reads a freshly mutated order from the store and overwrites the
// cached copy. The cache keeps the newest UpdatedAt, so a slower reader
// holding an older row cannot put it back.
func (s *Service) reload(ctx context.Context, id string) (*Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Sync()
	s.cache().Set(ctx, o)
	return o, nil
}

func (s *Service) List(ctx context.Context, customerID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, total, err := s.Orders.ListByCustomer(ctx, customerID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	for i := range list {
		list[i].Sync()
	}
	return Page{Orders: list, Total: total, Page: page, Limit: limit}, nil
}

// Cancel cancels a pending or processing order and releases its stock. A paid
// order is left refund-pending and never refunded here; settlement happens
// asynchronously from the order.cancelled event.
func (s *Service) Cancel(ctx context.Context, customerID, id, reason string) (Order, *RefundInfo, error) {
	o, err := s.Get(ctx, customerID, id)
	if err != nil {
		return Order{}, nil, err
	}
	if !o.Status.Cancellable() {
		return Order{}, nil, apperr.Conflict("order in status %s cannot be cancelled", o.Status)
	}

	payTo := o.Payment.Status
	var refund *RefundInfo
	switch o.Payment.Status {
	case PaymentCompleted:
		payTo = PaymentRefundPending
		refund = &RefundInfo{
			Amount:      o.Payment.Amount,
			Status:      PaymentRefundPending,
			ProviderRef: o.Payment.ProviderRef,
			Message:     "refund requested, it will be processed shortly",
		}
	case PaymentPending:
		payTo = PaymentCancelled
	}

	if err := s.Orders.Cancel(ctx, o.ID, o.Status, o.Payment.Status, payTo, reason, s.now()); err != nil {
		s.cache().Invalidate(ctx, o.ID)
		return Order{}, nil, err
	}
	if payTo == PaymentCancelled && o.Payment.ProviderRef != "" {
		if err := s.Payments.CancelIntent(ctx, o.Payment.ProviderRef); err != nil {
			s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("cancel payment intent")
		}
	}

	updated, err := s.reload(ctx, o.ID)
	if err != nil {
		return Order{}, nil, err
	}
	s.emit(ctx, EventOrderCancelled, o.ID, OrderCancelledPayload{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		Reason:         reason,
		RefundRequired: refund != nil,
		RefundAmount:   o.Payment.Amount,
		PaymentRef:     o.Payment.ProviderRef,
	})
	s.Log.Info().Str("order_id", o.ID).Bool("refund", refund != nil).Msg("order cancelled")

	return *updated, refund, nil
}

// ConfirmPayment records a successful provider confirmation. It never moves
// the order status, and retries after success are no-ops.
func (s *Service) ConfirmPayment(ctx context.Context, customerID, id string) (Order, error) {
	o, err := s.Get(ctx, customerID, id)
	if err != nil {
		return Order{}, err
	}
	if o.Payment.Status == PaymentCompleted {
		return o, nil
	}
	if o.Payment.Status != PaymentPending {
		return Order{}, apperr.Conflict("payment is %s and cannot be confirmed", o.Payment.Status)
	}
	if !o.Payment.Method.RequiresIntent() {
		return Order{}, apperr.Conflict("cash on delivery orders are settled on delivery")
	}

	intent, err := s.Payments.GetIntent(ctx, o.Payment.ProviderRef)
	if errors.Is(err, payment.ErrIntentNotFound) {
		return Order{}, apperr.Conflict("payment intent %s not found at provider", o.Payment.ProviderRef)
	}
	if err != nil {
		return Order{}, apperr.Internal(err, "payment provider unavailable")
	}
	if intent.Status != payment.IntentSucceeded {
		return Order{}, apperr.Conflict("payment has not been confirmed by the provider (status %s)", intent.Status)
	}

	err = s.Orders.UpdatePayment(ctx, o.ID, PaymentPending, PaymentCompleted, s.now())
	if err != nil && !apperr.Is(err, apperr.KindConflict) {
		return Order{}, err
	}
	updated, rerr := s.reload(ctx, o.ID)
	if rerr != nil {
		return Order{}, rerr
	}
	if err != nil {
		// lost a race with a concurrent confirmation
		if updated.Payment.Status == PaymentCompleted {
			return *updated, nil
		}
		return Order{}, err
	}
	s.emit(ctx, EventPaymentConfirmed, o.ID, PaymentConfirmedPayload{
		OrderID:    o.ID,
		PaymentRef: o.Payment.ProviderRef,
		Amount:     o.Payment.Amount,
	})
	s.Log.Info().Str("order_id", o.ID).Msg("payment confirmed")
	return *updated, nil
}

// Advance moves an order along the fulfillment path. Completing a cash order
// also settles its payment.
func (s *Service) Advance(ctx context.Context, id string, to Status) (Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if to == StatusCancelled {
		return Order{}, apperr.Validation("use cancel to cancel an order")
	}
	if !CanTransition(o.Status, to) {
		return Order{}, apperr.Conflict("order cannot move from %s to %s", o.Status, to)
	}
	now := s.now()
	if err := s.Orders.UpdateStatus(ctx, o.ID, o.Status, to, now); err != nil {
		s.cache().Invalidate(ctx, o.ID)
		return Order{}, err
	}
	if to == StatusCompleted && o.Payment.Method == PaymentCashOnDelivery && o.Payment.Status == PaymentPending {
		if err := s.Orders.UpdatePayment(ctx, o.ID, PaymentPending, PaymentCompleted, now); err != nil {
			s.Log.Error().Err(err).Str("order_id", o.ID).Msg("settle cash payment")
		}
	}
	updated, err := s.reload(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, EventOrderStatusChanged, o.ID, StatusChangedPayload{OrderID: o.ID, From: o.Status, To: to})
	return *updated, nil
}

// MarkRefunded settles a refund-pending payment. Already refunded is a no-op.
func (s *Service) MarkRefunded(ctx context.Context, id string) (Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return Order{}, err
	}
	switch o.Payment.Status {
	case PaymentRefunded:
		return *o, nil
	case PaymentRefundPending:
	default:
		return Order{}, apperr.Conflict("payment is %s, nothing to refund", o.Payment.Status)
	}
	if err := s.Orders.UpdatePayment(ctx, o.ID, PaymentRefundPending, PaymentRefunded, s.now()); err != nil && !apperr.Is(err, apperr.KindConflict) {
		return Order{}, fmt.Errorf("mark refunded: %w", err)
	}
	updated, err := s.reload(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	return *updated, nil
}
