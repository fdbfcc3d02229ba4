// Package checkin implements the fiscal's QR confirmation flow: extracting a
// user id from a scanned payload, suppressing repeated decodes of the same
// code, and the dialog state machine that ends in a presence insert.
package checkin

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

var uuidPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// Errors returned by this package.
var (
	ErrNoIdentifier = errors.New("no user identifier in payload")
	ErrUnitRequired = errors.New("unit_required")
	ErrInvalidDate  = errors.New("date outside the fiscal window")
	ErrInvalidMeal  = errors.New("invalid meal")
	ErrNoDialog     = errors.New("no open dialog")
	ErrBusy         = errors.New("confirmation in progress")
	ErrClosed       = errors.New("check-in flow closed")
)

// ExtractUserID returns the first UUID found in payload, lower-cased.
// Surrounding text such as a URL is ignored.
func ExtractUserID(payload string) (string, error) {
	m := uuidPattern.FindString(payload)
	if m == "" {
		return "", ErrNoIdentifier
	}
	id, err := uuid.Parse(m)
	if err != nil {
		return "", ErrNoIdentifier
	}
	return id.String(), nil
}

// Filter is the slot a fiscal is checking people into.
type Filter struct {
	Date       domain.Date `json:"date"`
	Meal       domain.Meal `json:"meal"`
	MessHallID int64       `json:"mess_hall_id"`
}

// FilterFor returns the default filter at now: today and the meal served at
// that hour.
func FilterFor(now time.Time, messHallID int64) Filter {
	return Filter{Date: domain.DateOf(now), Meal: domain.InferMeal(now), MessHallID: messHallID}
}

// AllowedDates returns yesterday, today and tomorrow relative to now.
func AllowedDates(now time.Time) []domain.Date {
	today := domain.DateOf(now)
	return []domain.Date{today.AddDays(-1), today, today.AddDays(1)}
}

// Validate checks f against the fiscal window around now.
func (f Filter) Validate(now time.Time) error {
	if f.MessHallID <= 0 {
		return ErrUnitRequired
	}
	if !f.Meal.Valid() {
		return ErrInvalidMeal
	}
	for _, d := range AllowedDates(now) {
		if d == f.Date {
			return nil
		}
	}
	return ErrInvalidDate
}
