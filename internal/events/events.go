// Package events publishes presence changes through a transactional outbox.
//
// Services call Enqueue inside the same transaction as the presence write.
// A Worker later reads unpublished rows, hands them to a Publisher (Kafka in
// production) and marks them published. Rows that fail stay pending and are
// retried on the next tick.
package events

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// Event types.
const (
	PresenceConfirmed = "presence.confirmed"
	PresenceDeleted   = "presence.deleted"
	OtherPresenceAdd  = "other_presence.created"
)

// AggregatePresence is the aggregate_type of every presence event.
const AggregatePresence = "presence"

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "sisub.presences"

// PresenceEvent is the JSON payload of a presence event.
type PresenceEvent struct {
	PresenceID string      `json:"presence_id"`
	UserID     string      `json:"user_id,omitempty"`
	Date       domain.Date `json:"date"`
	Meal       domain.Meal `json:"meal"`
	MessHallID int64       `json:"mess_hall_id"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Event is one message to be written to the outbox.
type Event struct {
	Topic         string
	Type          string
	AggregateType string
	AggregateID   string
	Payload       any
}

// Enqueue serializes ev and stores it in the outbox using tx.
func Enqueue(ctx context.Context, tx *gorm.DB, ev Event) error {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	topic := ev.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return repo.CreateOutboxEvent(ctx, tx, &domain.OutboxEvent{
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		EventType:     ev.Type,
		Topic:         topic,
		Payload:       body,
	})
}

// Presence builds the event for a presence row.
func Presence(topic, eventType string, p *domain.Presence) Event {
	return Event{
		Topic:         topic,
		Type:          eventType,
		AggregateType: AggregatePresence,
		AggregateID:   p.ID,
		Payload: PresenceEvent{
			PresenceID: p.ID,
			UserID:     p.UserID,
			Date:       p.Date,
			Meal:       p.Meal,
			MessHallID: p.MessHallID,
			OccurredAt: time.Now().UTC(),
		},
	}
}
