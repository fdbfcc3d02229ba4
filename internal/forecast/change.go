// Package forecast implements the per-user queue of pending meal-forecast
// edits and its batch save.
//
// Edits are keyed by (date, meal); a newer edit for the same key replaces the
// older one. A single debounce timer per queue triggers an automatic flush
// after the configured delay with no new edits, and Flush saves on demand.
// At most one batch is written at a time.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// Change is a not-yet-persisted edit of one forecast cell.
type Change struct {
	Date       domain.Date `json:"date"`
	Meal       domain.Meal `json:"meal"`
	Value      bool        `json:"value"`
	MessHallID int64       `json:"mess_hall_id"`
}

// Key identifies a forecast cell.
type Key struct {
	Date domain.Date
	Meal domain.Meal
}

// Key returns the cell c edits.
func (c Change) Key() Key { return Key{Date: c.Date, Meal: c.Meal} }

// Validate checks the change before it enters a queue.
func (c Change) Validate() error {
	if !c.Date.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, c.Date)
	}
	if !c.Meal.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMeal, c.Meal)
	}
	return nil
}

// Errors returned by this package.
var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMeal     = errors.New("invalid meal")
	ErrInvalidMessHall = errors.New("invalid mess hall")
	ErrClosed          = errors.New("forecast queue closed")
)

// InvalidMessHallError builds the per-change validation failure reported
// when a positive forecast has no usable mess hall.
func InvalidMessHallError(c Change) error {
	return fmt.Errorf("%w: messHallId inválido para %s-%s", ErrInvalidMessHall, c.Date, c.Meal)
}

// Writer persists one change for a user. Value true upserts the forecast,
// value false deletes it (a missing row is not an error).
type Writer interface {
	Write(ctx context.Context, userID string, c Change) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, userID string, c Change) error

// Write implements Writer.
func (f WriterFunc) Write(ctx context.Context, userID string, c Change) error {
	return f(ctx, userID, c)
}
