// Check-in HTTP handlers for the fiscal QR flow.
//
//   - GET  /checkin           (flow snapshot)
//   - PUT  /checkin/filter    (slot and auto-confirm)
//   - POST /checkin/scan      (decoded QR payload)
//   - PUT  /checkin/decision  (will enter yes/no)
//   - POST /checkin/confirm
//   - POST /checkin/cancel
//   - POST /checkin/self      (diner scans the mess hall code)
//
// Each fiscal (X-User-ID) owns one flow. Suppressed scans (cooldown, recently
// scanned, dialog already open) answer 200 with opened=false and a reason.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// CheckinFilterRequest changes the active slot of the flow.
type CheckinFilterRequest struct {
	Date        string `json:"date" binding:"omitempty,isodate" example:"2025-03-10"`
	Meal        string `json:"meal" binding:"omitempty,meal" example:"almoco"`
	MessHallID  int64  `json:"mess_hall_id" binding:"gte=0" example:"1"`
	AutoConfirm *bool  `json:"auto_confirm" example:"false"`
}

// ScanRequest carries the decoded QR text.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required,max=2048" example:"https://sisub.app/u/0b6f3c9e-2a51-4c1e-9d2a-7f6b1a2c3d4e"`
}

// DecisionRequest records whether the scanned person will eat.
type DecisionRequest struct {
	WillEnter *bool `json:"will_enter" binding:"required" example:"true"`
}

// SelfCheckinRequest is sent by a diner who scanned a mess hall QR code.
// WillEnter defaults to true.
type SelfCheckinRequest struct {
	MessHallCode string `json:"mess_hall_code" binding:"required,max=64" example:"RC"`
	WillEnter    *bool  `json:"will_enter" example:"true"`
}

// flow returns the caller's flow, created for messHallID when new, or
// answers 503 once the registry is closed for shutdown.
func (h *Handlers) flow(c *gin.Context, messHallID int64) (fl *checkin.Flow, open bool) {
	fl = h.checkins.Get(userID(c), messHallID)
	if fl == nil {
		failErr(c, checkin.ErrClosed, ErrCodeInternal)
		return nil, false
	}
	return fl, true
}

// GetCheckin godoc
// @ID          getCheckin
// @Summary     Check-in flow state
// @Tags        Checkin
// @Produce     json
//
// @Param       X-User-ID     header  string  false "Fiscal user ID"
// @Param       mess_hall_id  query   int     false "Mess hall for a new flow"
//
// @Success     200  {object} checkin.View
// @Router      /checkin [get]
func (h *Handlers) GetCheckin(c *gin.Context) {
	fl, open := h.flow(c, queryID(c, "mess_hall_id"))
	if !open {
		return
	}
	ok(c, http.StatusOK, fl.View())
}

// SetCheckinFilter godoc
// @ID          setCheckinFilter
// @Summary     Change the check-in slot
// @Description Sets date (yesterday, today or tomorrow), meal and mess hall.
// @Description Omitted date and meal default to now. Rejected while a dialog
// @Description is open.
// @Tags        Checkin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                         false "Fiscal user ID"
// @Param       body       body    handlers.CheckinFilterRequest  true  "Filter"
//
// @Success     200  {object} checkin.View
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Dialog open"
// @Router      /checkin/filter [put]
func (h *Handlers) SetCheckinFilter(c *gin.Context) {
	var req CheckinFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	flt := checkin.FilterFor(h.checkins.Now(), req.MessHallID)
	if req.Date != "" {
		flt.Date = domain.Date(req.Date)
	}
	if req.Meal != "" {
		flt.Meal, _ = domain.ParseMeal(req.Meal)
	}

	fl, open := h.flow(c, req.MessHallID)
	if !open {
		return
	}
	if err := fl.SetFilter(flt); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	if req.AutoConfirm != nil {
		fl.SetAutoConfirm(*req.AutoConfirm)
	}
	ok(c, http.StatusOK, fl.View())
}

// ScanCheckin godoc
// @ID          scanCheckin
// @Summary     Submit a scanned QR code
// @Description Extracts the user id and opens a confirmation dialog pre-filled
// @Description with the user's forecast for the active slot.
// @Tags        Checkin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                false "Fiscal user ID"
// @Param       body       body    handlers.ScanRequest  true  "Payload"
//
// @Success     200  {object} checkin.ScanResult
// @Failure     400  {object} handlers.ErrorResponse "No mess hall selected"
// @Failure     422  {object} handlers.ErrorResponse "QR without user id"
// @Router      /checkin/scan [post]
func (h *Handlers) ScanCheckin(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	fl, open := h.flow(c, queryID(c, "mess_hall_id"))
	if !open {
		return
	}
	res, err := fl.Scan(c.Request.Context(), req.Payload)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, res)
}

// SetCheckinDecision godoc
// @ID          setCheckinDecision
// @Summary     Set the dialog decision
// @Description Records will_enter and cancels a pending auto-confirm.
// @Tags        Checkin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                    false "Fiscal user ID"
// @Param       body       body    handlers.DecisionRequest  true  "Decision"
//
// @Success     200  {object} checkin.View
// @Failure     409  {object} handlers.ErrorResponse "No open dialog"
// @Router      /checkin/decision [put]
func (h *Handlers) SetCheckinDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	fl, open := h.flow(c, queryID(c, "mess_hall_id"))
	if !open {
		return
	}
	if err := fl.SetWillEnter(*req.WillEnter); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, fl.View())
}

// ConfirmCheckin godoc
// @ID          confirmCheckin
// @Summary     Confirm the open dialog
// @Description will_enter=true inserts a presence (an existing one is reported
// @Description as already_registered); false closes the dialog without insert.
// @Tags        Checkin
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Fiscal user ID"
//
// @Success     200  {object} checkin.Outcome
// @Failure     409  {object} handlers.ErrorResponse "No open dialog"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /checkin/confirm [post]
func (h *Handlers) ConfirmCheckin(c *gin.Context) {
	fl, open := h.flow(c, queryID(c, "mess_hall_id"))
	if !open {
		return
	}
	out, err := fl.Confirm(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	ok(c, http.StatusOK, out)
}

// CancelCheckin godoc
// @ID          cancelCheckin
// @Summary     Close the dialog without recording
// @Tags        Checkin
//
// @Param       X-User-ID  header  string  false "Fiscal user ID"
//
// @Success     204
// @Failure     409  {object} handlers.ErrorResponse "No open dialog"
// @Router      /checkin/cancel [post]
func (h *Handlers) CancelCheckin(c *gin.Context) {
	fl, open := h.flow(c, queryID(c, "mess_hall_id"))
	if !open {
		return
	}
	if err := fl.Cancel(); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// SelfCheckin godoc
// @ID          selfCheckin
// @Summary     Check in at a mess hall
// @Description The caller records their own presence at the mess hall with
// @Description mess_hall_code for today and the meal of the current hour.
// @Description will_enter=false records the decision without a presence. An
// @Description existing presence is answered with already_registered=true.
// @Tags        Checkin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                       false "Diner user ID"
// @Param       body       body    handlers.SelfCheckinRequest  true  "Mess hall code"
//
// @Success     201  {object} services.SelfCheckinResult "Presence recorded"
// @Success     200  {object} services.SelfCheckinResult "Already registered or skipped"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Unknown mess hall code"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /checkin/self [post]
func (h *Handlers) SelfCheckin(c *gin.Context) {
	var req SelfCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	willEnter := req.WillEnter == nil || *req.WillEnter

	res, err := h.presences.SelfCheckin(c.Request.Context(), userID(c), strings.TrimSpace(req.MessHallCode), willEnter, h.now())
	if err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	status := http.StatusOK
	if res.Entered && !res.AlreadyRegistered {
		status = http.StatusCreated
	}
	ok(c, status, res)
}
