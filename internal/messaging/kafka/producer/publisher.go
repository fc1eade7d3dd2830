// Package producer publishes storefront events (checkout initiated, cart
// cleared) to Kafka for downstream consumers.
package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventCheckoutInitiated = "CHECKOUT_INITIATED"
	EventCartCleared       = "CART_CLEARED"
)

const (
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

type Event struct {
	ID            uuid.UUID
	Type          string
	AggregateType string
	AggregateID   string
	Payload       []byte
	OccurredAt    time.Time
}

// NewEvent marshals payload and stamps a fresh id.
func NewEvent(eventType, aggregateType, aggregateID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       body,
		OccurredAt:    time.Now().UTC(),
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	return p.writer.WriteMessages(ctx, toMessage(ev))
}

func toMessage(ev Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.Type)},
			{Key: HeaderAggregateType, Value: []byte(ev.AggregateType)},
			{Key: "event_id", Value: []byte(ev.ID.String())},
		},
	}
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
