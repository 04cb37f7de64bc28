package refunds

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/rs/zerolog"
)

type PendingSource interface {
	Settler
	PendingRefunds(ctx context.Context, grace time.Duration, limit int) ([]orders.Order, error)
}

// Reconciler settles refund-pending orders whose event never arrived or was
// never processed. Settlement is idempotent, so racing the event path is safe.
type Reconciler struct {
	Orders   PendingSource
	Grace    time.Duration
	Interval time.Duration
	Batch    int
	Log      zerolog.Logger
}

// Run sweeps once right away and then every Interval until ctx ends.
func (r *Reconciler) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.Log.Error().Err(err).Msg("refund sweep")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Sweep settles one batch and reports how many orders it settled.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	pending, err := r.Orders.PendingRefunds(ctx, r.Grace, r.Batch)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, o := range pending {
		p := orders.OrderCancelledPayload{
			OrderID:        o.ID,
			CustomerID:     o.CustomerID,
			RefundRequired: true,
			RefundAmount:   o.Payment.Amount,
			PaymentRef:     o.Payment.ProviderRef,
		}
		if err := r.Orders.SettleRefund(ctx, p); err != nil {
			r.Log.Warn().Err(err).Str("order_id", o.ID).Msg("reconcile refund")
			continue
		}
		settled++
	}
	if settled > 0 {
		r.Log.Info().Int("settled", settled).Msg("refunds reconciled")
	}
	return settled, nil
}
