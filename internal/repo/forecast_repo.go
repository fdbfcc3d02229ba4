// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Forecast
// model.
//
// Write semantics mirror what the save queue needs:
//   - UpsertForecast inserts or updates the (user_id, date, meal) row in one
//     statement (ON CONFLICT ... DO UPDATE).
//   - ReplaceForecast is the fallback for backends that reject that upsert:
//     delete then insert inside a transaction.
//   - DeleteForecast reports how many rows were removed; zero is not an error.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// ForecastFilter narrows ListForecasts. Zero values disable a criterion.
type ForecastFilter struct {
	UserID      string
	MessHallIDs []int64
	Start       domain.Date
	End         domain.Date
	Meal        domain.Meal
	WillEatOnly bool
}

// UpsertForecast writes f keyed by (user_id, date, meal), updating will_eat,
// mess_hall_id and updated_at when the row already exists.
func UpsertForecast(ctx context.Context, db *gorm.DB, f *domain.Forecast) error {
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "meal"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"will_eat", "mess_hall_id", "updated_at",
			}),
		}).
		Create(f).Error
}

// ReplaceForecast deletes any (user_id, date, meal) row and inserts f in a
// single transaction.
func ReplaceForecast(ctx context.Context, db *gorm.DB, f *domain.Forecast) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := DeleteForecast(ctx, tx, f.UserID, f.Date, f.Meal); err != nil {
			return err
		}
		now := time.Now().UTC()
		f.ID = 0
		f.CreatedAt, f.UpdatedAt = now, now
		return tx.Create(f).Error
	})
}

// DeleteForecast removes the (user_id, date, meal) row and returns the number
// of rows affected.
func DeleteForecast(ctx context.Context, db *gorm.DB, userID string, date domain.Date, meal domain.Meal) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND meal = ?", userID, date, meal).
		Delete(&domain.Forecast{})
	return res.RowsAffected, res.Error
}

// GetForecast loads a single forecast row or returns ErrNotFound.
func GetForecast(ctx context.Context, db *gorm.DB, userID string, date domain.Date, meal domain.Meal) (*domain.Forecast, error) {
	var f domain.Forecast
	err := db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND meal = ?", userID, date, meal).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListForecasts returns forecasts matching flt ordered by (date, meal, user_id).
func ListForecasts(ctx context.Context, db *gorm.DB, flt ForecastFilter) ([]domain.Forecast, error) {
	q := db.WithContext(ctx).Model(&domain.Forecast{})
	if flt.UserID != "" {
		q = q.Where("user_id = ?", flt.UserID)
	}
	if len(flt.MessHallIDs) > 0 {
		q = q.Where("mess_hall_id IN ?", flt.MessHallIDs)
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
	if flt.WillEatOnly {
		q = q.Where("will_eat = ?", true)
	}
	var out []domain.Forecast
	err := q.Order("date ASC, meal ASC, user_id ASC").Find(&out).Error
	return out, err
}
