// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Presence
// and OtherPresence models.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// PresenceFilter narrows ListPresences. Zero values disable a criterion.
type PresenceFilter struct {
	Date        domain.Date
	Start       domain.Date
	End         domain.Date
	Meal        domain.Meal
	MessHallIDs []int64
	UserIDs     []string
}

// CreatePresence inserts a presence row. A row for the same
// (user_id, date, meal, mess_hall_id) yields ErrDuplicate.
func CreatePresence(ctx context.Context, db *gorm.DB, userID string, date domain.Date, meal domain.Meal, messHallID int64) (*domain.Presence, error) {
	p := &domain.Presence{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       date,
		Meal:       meal,
		MessHallID: messHallID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// GetPresence fetches a presence by id or returns ErrNotFound.
func GetPresence(ctx context.Context, db *gorm.DB, id string) (*domain.Presence, error) {
	var p domain.Presence
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPresence returns the presence for an exact slot or ErrNotFound.
func FindPresence(ctx context.Context, db *gorm.DB, userID string, date domain.Date, meal domain.Meal, messHallID int64) (*domain.Presence, error) {
	var p domain.Presence
	err := db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND meal = ? AND mess_hall_id = ?", userID, date, meal, messHallID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePresence removes a presence by id. It returns ErrNotFound when no row
// matched.
func DeletePresence(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Presence{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPresences returns presences matching flt, newest first.
func ListPresences(ctx context.Context, db *gorm.DB, flt PresenceFilter) ([]domain.Presence, error) {
	var out []domain.Presence
	err := presenceQuery(ctx, db, flt).
		Order("created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

func presenceQuery(ctx context.Context, db *gorm.DB, flt PresenceFilter) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.Presence{})
	if flt.Date != "" {
		q = q.Where("date = ?", flt.Date)
	}
	if flt.Start != "" {
		q = q.Where("date >= ?", flt.Start)
	}
	if flt.End != "" {
		q = q.Where("date <= ?", flt.End)
	}
	if flt.Meal != "" {
		q = q.Where("meal = ?", flt.Meal)
	}
	if len(flt.MessHallIDs) > 0 {
		q = q.Where("mess_hall_id IN ?", flt.MessHallIDs)
	}
	if len(flt.UserIDs) > 0 {
		q = q.Where("user_id IN ?", flt.UserIDs)
	}
	return q
}

// CreateOtherPresence records one walk-in diner for the slot.
func CreateOtherPresence(ctx context.Context, db *gorm.DB, adminID string, date domain.Date, meal domain.Meal, messHallID int64) (*domain.OtherPresence, error) {
	o := &domain.OtherPresence{
		ID:         uuid.NewString(),
		AdminID:    adminID,
		Date:       date,
		Meal:       meal,
		MessHallID: messHallID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// CountOtherPresences counts walk-ins for a slot.
func CountOtherPresences(ctx context.Context, db *gorm.DB, date domain.Date, meal domain.Meal, messHallID int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.OtherPresence{}).
		Where("date = ? AND meal = ? AND mess_hall_id = ?", date, meal, messHallID).
		Count(&n).Error
	return n, err
}
