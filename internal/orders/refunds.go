package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

// SettleRefund runs the provider refund for a cancelled paid order and marks
// the payment refunded. Safe to call again for the same order.
func (s *Service) SettleRefund(ctx context.Context, p OrderCancelledPayload) error {
	if !p.RefundRequired {
		return nil
	}
	o, err := s.load(ctx, p.OrderID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.Log.Warn().Str("order_id", p.OrderID).Msg("refund for unknown order dropped")
			return nil
		}
		return err
	}
	switch o.Payment.Status {
	case PaymentRefunded:
		return nil
	case PaymentRefundPending:
	default:
		s.Log.Warn().Str("order_id", o.ID).Str("payment_status", string(o.Payment.Status)).Msg("refund skipped")
		return nil
	}

	refund, err := s.Payments.Refund(ctx, o.Payment.ProviderRef, o.Payment.Amount)
	if err != nil {
		return fmt.Errorf("refund order %s: %w", o.ID, err)
	}
	if _, err := s.MarkRefunded(ctx, o.ID); err != nil {
		return err
	}
	s.emit(ctx, EventPaymentRefunded, o.ID, PaymentRefundedPayload{
		OrderID:    o.ID,
		PaymentRef: o.Payment.ProviderRef,
		RefundID:   refund.ID,
		Amount:     refund.Amount,
	})
	s.Log.Info().Str("order_id", o.ID).Str("refund_id", refund.ID).Msg("payment refunded")
	return nil
}

// PendingRefunds lists orders still waiting for their refund whose cancel is
// older than grace. The grace leaves room for the event path to settle first.
func (s *Service) PendingRefunds(ctx context.Context, grace time.Duration, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.Orders.ListRefundPending(ctx, s.now().Add(-grace), limit)
}
