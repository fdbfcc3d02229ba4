package events

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// Publisher delivers outbox rows to a broker.
type Publisher interface {
	Publish(ctx context.Context, evs ...domain.OutboxEvent) error
	Close() error
}

// KafkaPublisher writes outbox rows with a kafka-go Writer. The aggregate id
// is the message key so events of one presence stay ordered.
type KafkaPublisher struct {
	w *kafkago.Writer
}

// NewKafkaPublisher returns a publisher over brokers. Topics come from each
// event, so the writer has none.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

// Publish writes evs in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, evs ...domain.OutboxEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(evs))
	for _, ev := range evs {
		msgs = append(msgs, message(ev))
	}
	return p.w.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error { return p.w.Close() }

func message(ev domain.OutboxEvent) kafkago.Message {
	return kafkago.Message{
		Topic: ev.Topic,
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
		},
		Time: ev.CreatedAt,
	}
}
