// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them. Generic
// codes mirror HTTP semantics. Domain codes name the rule that was violated,
// e.g. unit_required when a fiscal operation has no mess hall selected.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "unit_required",
//	  "message": "select a mess hall first"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "unavailable"
	ErrCodeTimeout          = "timeout"

	// Domain-specific:
	ErrCodeUnitRequired       = "unit_required"
	ErrCodeInvalidDate        = "invalid_date"
	ErrCodeInvalidMeal        = "invalid_meal"
	ErrCodeInvalidMessHall    = "invalid_mess_hall"
	ErrCodeInvalidReportParam = "invalid_report_param"
	ErrCodeInvalidQRCode      = "invalid_qr_code"
	ErrCodeNoDialog           = "no_dialog"
	ErrCodeBusy               = "busy"
	ErrCodeListFailed         = "list_failed"
	ErrCodeSaveFailed         = "save_failed"
	ErrCodeExportFailed       = "export_failed"
)

// failErr maps a service error to a status and code. Unknown errors become a
// 500 carrying fallback as the code.
func failErr(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUnitRequired), errors.Is(err, checkin.ErrUnitRequired):
		fail(c, http.StatusBadRequest, ErrCodeUnitRequired, "select a mess hall first")
	case errors.Is(err, services.ErrInvalidDate), errors.Is(err, forecast.ErrInvalidDate), errors.Is(err, checkin.ErrInvalidDate):
		fail(c, http.StatusBadRequest, ErrCodeInvalidDate, err.Error())
	case errors.Is(err, services.ErrInvalidMeal), errors.Is(err, forecast.ErrInvalidMeal), errors.Is(err, checkin.ErrInvalidMeal):
		fail(c, http.StatusBadRequest, ErrCodeInvalidMeal, err.Error())
	case errors.Is(err, services.ErrInvalidMessHall), errors.Is(err, services.ErrInvalidDefaultMessHall), errors.Is(err, forecast.ErrInvalidMessHall):
		fail(c, http.StatusBadRequest, ErrCodeInvalidMessHall, err.Error())
	case errors.Is(err, services.ErrInvalidReportParam):
		fail(c, http.StatusBadRequest, ErrCodeInvalidReportParam, err.Error())
	case errors.Is(err, checkin.ErrNoIdentifier):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidQRCode, "QR code does not carry a user id")
	case errors.Is(err, services.ErrPresenceNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "presence not found")
	case errors.Is(err, services.ErrMessHallNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "mess hall not found")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, checkin.ErrNoDialog):
		fail(c, http.StatusConflict, ErrCodeNoDialog, "no open confirmation dialog")
	case errors.Is(err, checkin.ErrBusy):
		fail(c, http.StatusConflict, ErrCodeBusy, "a confirmation is in progress")
	case errors.Is(err, checkin.ErrClosed), errors.Is(err, forecast.ErrClosed):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "server is shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
