// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to mess halls and units.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// ListMessHalls returns mess halls ordered by display name. unitID == 0 lists all.
func ListMessHalls(ctx context.Context, db *gorm.DB, unitID int64) ([]domain.MessHall, error) {
	q := db.WithContext(ctx).Model(&domain.MessHall{})
	if unitID > 0 {
		q = q.Where("unit_id = ?", unitID)
	}
	var out []domain.MessHall
	err := q.Order("display_name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetMessHall fetches a mess hall by id or returns ErrNotFound.
func GetMessHall(ctx context.Context, db *gorm.DB, id int64) (*domain.MessHall, error) {
	var mh domain.MessHall
	if err := db.WithContext(ctx).Where("id = ?", id).First(&mh).Error; err != nil {
		return nil, err
	}
	return &mh, nil
}

// GetMessHallByCode fetches a mess hall by its unique code or returns
// ErrNotFound.
func GetMessHallByCode(ctx context.Context, db *gorm.DB, code string) (*domain.MessHall, error) {
	var mh domain.MessHall
	if err := db.WithContext(ctx).Where("code = ?", code).First(&mh).Error; err != nil {
		return nil, err
	}
	return &mh, nil
}

// ListUnits returns every unit ordered by display name.
func ListUnits(ctx context.Context, db *gorm.DB) ([]domain.Unit, error) {
	var out []domain.Unit
	err := db.WithContext(ctx).Order("display_name ASC, id ASC").Find(&out).Error
	return out, err
}
