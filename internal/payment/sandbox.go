package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State stores sandbox intents. Use the Redis state when the API and the
// refund worker run as separate processes.
type State interface {
	Load(ctx context.Context, id string) (Intent, error)
	Store(ctx context.Context, in Intent) error
}

// Sandbox is a provider for local runs and tests. Intents wait in
// requires_confirmation until Succeed is called, the way a real customer
// would confirm them client side.
type Sandbox struct {
	State State
}

func NewSandbox(s State) *Sandbox {
	if s == nil {
		s = NewMemoryState()
	}
	return &Sandbox{State: s}
}

func (s *Sandbox) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if !req.Amount.IsPositive() {
		return Intent{}, fmt.Errorf("create intent: amount must be positive, got %s", req.Amount)
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		OrderID:      req.OrderID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       IntentRequiresConfirmation,
	}
	if err := s.State.Store(ctx, in); err != nil {
		return Intent{}, fmt.Errorf("create intent: %w", err)
	}
	return in, nil
}

func (s *Sandbox) GetIntent(ctx context.Context, id string) (Intent, error) {
	return s.State.Load(ctx, id)
}

// Succeed plays the customer confirming the intent.
func (s *Sandbox) Succeed(ctx context.Context, id string) (Intent, error) {
	in, err := s.State.Load(ctx, id)
	if err != nil {
		return Intent{}, err
	}
	switch in.Status {
	case IntentSucceeded:
		return in, nil
	case IntentRequiresConfirmation:
	default:
		return Intent{}, fmt.Errorf("succeed %s (%s): %w", id, in.Status, ErrInvalidState)
	}
	in.Status = IntentSucceeded
	return in, s.State.Store(ctx, in)
}

func (s *Sandbox) CancelIntent(ctx context.Context, id string) error {
	in, err := s.State.Load(ctx, id)
	if err != nil {
		return err
	}
	switch in.Status {
	case IntentCanceled:
		return nil
	case IntentRequiresConfirmation:
	default:
		return fmt.Errorf("cancel %s (%s): %w", id, in.Status, ErrInvalidState)
	}
	in.Status = IntentCanceled
	return s.State.Store(ctx, in)
}

func (s *Sandbox) Refund(ctx context.Context, intentID string, amount decimal.Decimal) (Refund, error) {
	in, err := s.State.Load(ctx, intentID)
	if err != nil {
		return Refund{}, err
	}
	switch in.Status {
	case IntentRefunded:
		return Refund{ID: in.RefundID, IntentID: in.ID, Amount: amount}, nil
	case IntentSucceeded:
	default:
		return Refund{}, fmt.Errorf("refund %s (%s): %w", intentID, in.Status, ErrInvalidState)
	}
	if amount.GreaterThan(in.Amount) {
		return Refund{}, fmt.Errorf("refund %s: amount %s exceeds captured %s", intentID, amount, in.Amount)
	}
	in.Status = IntentRefunded
	in.RefundID = "re_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.State.Store(ctx, in); err != nil {
		return Refund{}, err
	}
	return Refund{ID: in.RefundID, IntentID: in.ID, Amount: amount}, nil
}
