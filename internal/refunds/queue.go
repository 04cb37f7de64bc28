package refunds

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/rs/zerolog"
)

// Queue settles refunds in process when no event bus is configured. It wraps
// the order event sink and picks order.cancelled events off the request path.
// A full queue drops the job; the Reconciler picks such orders up later.
type Queue struct {
	Next orders.EventSink
	jobs chan orders.OrderCancelledPayload
	log  zerolog.Logger

	backoff time.Duration
}

func NewQueue(next orders.EventSink, buf int, log zerolog.Logger) *Queue {
	if buf <= 0 {
		buf = 256
	}
	return &Queue{
		Next:    next,
		jobs:    make(chan orders.OrderCancelledPayload, buf),
		log:     log.With().Str("component", "refund-queue").Logger(),
		backoff: 200 * time.Millisecond,
	}
}

func (q *Queue) Emit(ctx context.Context, eventType, orderID string, payload any) error {
	if q.Next != nil {
		if err := q.Next.Emit(ctx, eventType, orderID, payload); err != nil {
			return err
		}
	}
	if eventType != orders.EventOrderCancelled {
		return nil
	}
	p, ok := payload.(orders.OrderCancelledPayload)
	if !ok || !p.RefundRequired {
		return nil
	}
	select {
	case q.jobs <- p:
	default:
		q.log.Warn().Str("order_id", orderID).Msg("refund queue full, left to reconciler")
	}
	return nil
}

// Run settles queued refunds until ctx ends, retrying each with capped
// backoff.
func (q *Queue) Run(ctx context.Context, s Settler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-q.jobs:
			q.settle(ctx, s, p)
		}
	}
}

func (q *Queue) settle(ctx context.Context, s Settler, p orders.OrderCancelledPayload) {
	wait := q.backoff
	for {
		err := s.SettleRefund(ctx, p)
		if err == nil {
			return
		}
		q.log.Error().Err(err).Str("order_id", p.OrderID).Dur("retry_in", wait).Msg("settle refund")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait = min(wait*2, 5*time.Second)
	}
}
