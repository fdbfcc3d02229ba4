// Package services defines the business logic for forecasts, presences,
// dashboards, mess halls and reports. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Validation errors.
var (
	// ErrInvalidMeal is returned when a meal is outside cafe|almoco|janta|ceia.
	ErrInvalidMeal = errors.New("invalid meal")

	// ErrInvalidDate is returned for a malformed date or an inverted range.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidMessHall is returned when a mess hall id is missing or unknown.
	ErrInvalidMessHall = errors.New("invalid mess hall")

	// ErrInvalidDefaultMessHall carries the user-facing message shown when the
	// preferred mess hall cannot be saved.
	ErrInvalidDefaultMessHall = errors.New("Rancho padrão inválido.")

	// ErrUnitRequired is returned when a fiscal operation has no mess hall.
	ErrUnitRequired = errors.New("unit_required")

	// ErrInvalidReportParam is returned for unknown filters, order columns or
	// malformed report parameters.
	ErrInvalidReportParam = errors.New("invalid report parameter")
)

// Lookup errors.
var (
	// ErrPresenceNotFound indicates the presence id does not exist.
	ErrPresenceNotFound = errors.New("presence not found")

	// ErrMessHallNotFound indicates the mess hall id does not exist.
	ErrMessHallNotFound = errors.New("mess hall not found")

	// ErrUserNotFound indicates the user has no user_data row.
	ErrUserNotFound = errors.New("user not found")
)
