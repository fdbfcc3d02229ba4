package domain

import "time"

// Idempotency records the outcome of an unsafe request so a retry carrying the
// same Idempotency-Key returns the original resource instead of repeating the
// side effect. Records are keyed by (user_id, scope, key), where scope is the
// HTTP method plus route template (e.g. "POST /api/v1/presences").
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_scope_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	ExpiresAt  time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// OutboxEvent is a domain event persisted in the same transaction as the change
// that produced it and later relayed to the message broker.
type OutboxEvent struct {
	ID            string     `gorm:"type:char(36);primaryKey"`
	AggregateType string     `gorm:"type:varchar(64);not null"`
	AggregateID   string     `gorm:"type:varchar(64);not null"`
	EventType     string     `gorm:"type:varchar(64);not null"`
	Topic         string     `gorm:"type:varchar(128);not null"`
	Payload       []byte     `gorm:"not null"`
	Attempts      int        `gorm:"not null;default:0"`
	LastError     string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"index"`
	PublishedAt   *time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (OutboxEvent) TableName() string { return "outbox_events" }
