package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

type publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header) error
}

// OrderEvents wraps order lifecycle payloads in the envelope and publishes
// them keyed by order id.
type OrderEvents struct {
	P       publisher
	Service string
	// TraceID pulls a trace id (the HTTP request id) from ctx when set.
	TraceID func(ctx context.Context) string
}

func NewOrderEvents(p *Producer, service string, trace func(context.Context) string) *OrderEvents {
	return &OrderEvents{P: p, Service: service, TraceID: trace}
}

func (e *OrderEvents) Emit(ctx context.Context, eventType, orderID string, payload any) error {
	topic, ok := orders.TopicFor(eventType)
	if !ok {
		return fmt.Errorf("no topic for event %s", eventType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       body,
	}
	if e.TraceID != nil {
		ev.TraceID = e.TraceID(ctx)
	}
	return e.P.Publish(topic, orders.PartitionKey(orderID), MustMarshal(ev),
		kafka.Header{Key: HeaderEventType, Value: []byte(eventType)},
		kafka.Header{Key: HeaderEventVersion, Value: []byte("1")},
	)
}

// DecodeEnvelope parses a message value written by OrderEvents.
func DecodeEnvelope(m kafka.Message) (orders.Envelope, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope at offset %d: %w", m.Offset, err)
	}
	return env, nil
}
