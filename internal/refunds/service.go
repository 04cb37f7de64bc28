// Package refunds settles refunds for paid orders that were cancelled. It
// consumes order.cancelled events.
package refunds

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type Settler interface {
	SettleRefund(ctx context.Context, p orders.OrderCancelledPayload) error
}

// Dedup claims an event id before it is processed.
type Dedup interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Service struct {
	Orders Settler
	Dedup  Dedup
	Log    zerolog.Logger
}

// HandleOrderCancelled is installed as the consumer handler.
func (s *Service) HandleOrderCancelled(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		// a poison message would block its lane forever
		s.Log.Error().Err(err).Int64("offset", m.Offset).Msg("drop undecodable message")
		return nil
	}
	if env.EventType != orders.EventOrderCancelled {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
	if err != nil {
		s.Log.Error().Err(err).Str("event_id", env.EventID).Msg("drop undecodable payload")
		return nil
	}
	if !p.RefundRequired {
		return nil
	}

	if s.Dedup != nil {
		fresh, err := s.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup claim %s: %w", env.EventID, err)
		}
		if !fresh {
			s.Log.Debug().Str("event_id", env.EventID).Msg("duplicate delivery skipped")
			return nil
		}
	}

	if err := s.Orders.SettleRefund(ctx, p); err != nil {
		if s.Dedup != nil {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				s.Log.Warn().Err(ferr).Str("event_id", env.EventID).Msg("dedup forget")
			}
		}
		return err
	}
	s.Log.Info().Str("order_id", p.OrderID).Str("trace_id", env.TraceID).Msg("refund settled")
	return nil
}
