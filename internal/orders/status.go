package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusCompleted: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validNext[st]
	return st, ok
}

func (s Status) Terminal() bool { return len(validNext[s]) == 0 }

// Cancellable is true only before shipment.
func (s Status) Cancellable() bool { return CanTransition(s, StatusCancelled) }

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentCompleted     PaymentStatus = "completed"
	PaymentFailed        PaymentStatus = "failed"
	PaymentCancelled     PaymentStatus = "cancelled"
	PaymentRefundPending PaymentStatus = "refund-pending"
	PaymentRefunded      PaymentStatus = "refunded"
)

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:       {PaymentCompleted: true, PaymentFailed: true, PaymentCancelled: true},
	PaymentCompleted:     {PaymentRefundPending: true},
	PaymentRefundPending: {PaymentRefunded: true},
	PaymentFailed:        {},
	PaymentCancelled:     {},
	PaymentRefunded:      {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return paymentNext[from][to]
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
	PaymentEWallet        PaymentMethod = "ewallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case PaymentCashOnDelivery, PaymentCard, PaymentEWallet:
		return m, true
	}
	return "", false
}

// RequiresIntent reports whether checkout must open a payment intent with the
// provider. Cash is settled on delivery.
func (m PaymentMethod) RequiresIntent() bool { return m != PaymentCashOnDelivery }
