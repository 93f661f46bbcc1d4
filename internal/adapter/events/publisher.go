package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"purchase-order-backend/internal/domain/order"

	"github.com/segmentio/kafka-go"
)

const TypeStatusChanged = "order.status_changed"

// StatusChanged is emitted after a status transition has been committed.
type StatusChanged struct {
	EventID string       `json:"event_id"`
	Type    string       `json:"type"`
	OrderID string       `json:"order_id"`
	Number  string       `json:"number"`
	From    order.Status `json:"from"`
	To      order.Status `json:"to"`
	Actor   string       `json:"actor,omitempty"`
	At      time.Time    `json:"at"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev StatusChanged) error
	Close() error
}

// Noop drops every event; used when kafka is disabled.
type Noop struct{}

func (Noop) PublishStatusChanged(context.Context, StatusChanged) error { return nil }
func (Noop) Close() error                                              { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by order id so a consumer sees one order's
// transitions in order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, ev StatusChanged) error {
	ev.Type = TypeStatusChanged
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
		Time: ev.At,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for %s: %w", ev.Type, ev.Number, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
