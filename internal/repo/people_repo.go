// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides access to user preferences and the
// personnel records used to enrich dashboard rows.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// GetUserData fetches user_data by id or returns ErrNotFound.
func GetUserData(ctx context.Context, db *gorm.DB, id string) (*domain.UserData, error) {
	var u domain.UserData
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUserData returns the rows for ids. Unknown ids are skipped.
func ListUserData(ctx context.Context, db *gorm.DB, ids []string) ([]domain.UserData, error) {
	if len(ids) == 0 {
		return []domain.UserData{}, nil
	}
	var out []domain.UserData
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

// ListMilitaryData returns the personnel rows for the given service numbers.
func ListMilitaryData(ctx context.Context, db *gorm.DB, nrOrdens []string) ([]domain.MilitaryData, error) {
	if len(nrOrdens) == 0 {
		return []domain.MilitaryData{}, nil
	}
	var out []domain.MilitaryData
	err := db.WithContext(ctx).Where("nr_ordem IN ?", nrOrdens).Order("nr_ordem ASC").Find(&out).Error
	return out, err
}

// SetDefaultMessHall upserts user_data.default_mess_hall_id for userID.
// email is only written when the row is created.
func SetDefaultMessHall(ctx context.Context, db *gorm.DB, userID, email string, messHallID int64) error {
	u := &domain.UserData{
		ID:                userID,
		Email:             email,
		DefaultMessHallID: &messHallID,
		UpdatedAt:         time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_mess_hall_id", "updated_at"}),
		}).
		Create(u).Error
}
