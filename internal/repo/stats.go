// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PresenceStats returns the number of presences matching flt and the newest
// CreatedAt among them. When nothing matches, count is 0 and latest is nil.
//
// A fiscal polling the attendance list for a slot gets a cheap way to detect
// "nothing changed" without transferring rows.
func PresenceStats(ctx context.Context, db *gorm.DB, flt PresenceFilter) (count int64, latest *time.Time, err error) {
	if err = presenceQuery(ctx, db, flt).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = presenceQuery(ctx, db, flt).Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
