// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the transactional outbox used to
// publish presence events after the originating write commits.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// maxOutboxError caps the stored last_error text.
const maxOutboxError = 500

// CreateOutboxEvent inserts ev using db, which is usually the caller's
// transaction. ID and CreatedAt are filled when empty.
func CreateOutboxEvent(ctx context.Context, db *gorm.DB, ev *domain.OutboxEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// ListUnpublishedOutbox returns up to limit unpublished events, oldest first.
func ListUnpublishedOutbox(ctx context.Context, db *gorm.DB, limit int) ([]domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.OutboxEvent
	err := db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkOutboxPublished stamps published_at on ids.
func MarkOutboxPublished(ctx context.Context, db *gorm.DB, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id IN ?", ids).
		Update("published_at", at).Error
}

// MarkOutboxFailed increments attempts and records the last error for id.
func MarkOutboxFailed(ctx context.Context, db *gorm.DB, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxOutboxError {
		msg = msg[:maxOutboxError]
	}
	return db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

// PurgePublishedOutbox deletes events published before cutoff.
func PurgePublishedOutbox(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&domain.OutboxEvent{})
	return res.RowsAffected, res.Error
}
