package orders

const (
	TopicOrderCreated      = "order.created"
	TopicOrderCancelled    = "order.cancelled"
	TopicPaymentConfirmed  = "order.payment.confirmed"
	TopicPaymentRefunded   = "order.payment.refunded"
	TopicOrderStatusChange = "order.status.changed"
)

var topicByEvent = map[string]string{
	EventOrderCreated:       TopicOrderCreated,
	EventOrderCancelled:     TopicOrderCancelled,
	EventPaymentConfirmed:   TopicPaymentConfirmed,
	EventPaymentRefunded:    TopicPaymentRefunded,
	EventOrderStatusChanged: TopicOrderStatusChange,
}

// TopicFor maps an event type to its topic; unknown types go nowhere.
func TopicFor(eventType string) (string, bool) {
	t, ok := topicByEvent[eventType]
	return t, ok
}

// Partition key = order id so every event of one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
