// Presence HTTP handlers.
//
//   - GET    /presences                (attendance list for a slot, ETag support)
//   - POST   /presences                (confirm a presence, Idempotency-Key aware)
//   - DELETE /presences/{id}
//   - POST   /presences/others         (walk-in without registration)
//   - GET    /presences/others/count
//
// Idempotency:
// If the client supplies an Idempotency-Key and a previous confirmation with
// the same key exists for (user, route), the stored presence is returned with
// `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/http/middleware"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

//
// DTOs
//

// SlotRequest addresses a (date, meal, mess hall) slot.
type SlotRequest struct {
	Date       string `json:"date" binding:"required,isodate" example:"2025-03-10"`
	Meal       string `json:"meal" binding:"required,meal" example:"almoco"`
	MessHallID int64  `json:"mess_hall_id" example:"1"`
}

// ConfirmPresenceRequest records that a user entered a mess hall.
type ConfirmPresenceRequest struct {
	UserID string `json:"user_id" binding:"required,uuid" example:"0b6f3c9e-2a51-4c1e-9d2a-7f6b1a2c3d4e"`
	SlotRequest
}

// ListPresencesResponse is the attendance list for one slot.
type ListPresencesResponse struct {
	Slot      services.Slot           `json:"slot"`
	Presences []services.PresenceView `json:"presences"`
	Total     int                     `json:"total"`
}

// CountResponse carries a single count.
type CountResponse struct {
	Count int64 `json:"count" example:"3"`
}

func (r SlotRequest) slot() services.Slot {
	meal, _ := domain.ParseMeal(r.Meal)
	return services.Slot{Date: domain.Date(r.Date), Meal: meal, MessHallID: r.MessHallID}
}

//
// Handlers
//

// ListPresences godoc
// @ID          listPresences
// @Summary     Attendance list for a slot
// @Description Returns the presences of a (date, meal, mess hall) slot, newest
// @Description first, with each person's details and forecast. date and meal
// @Description default to today and the meal being served. Supports weak ETag
// @Description via If-None-Match and may return 304.
// @Tags        Presences
// @Produce     json
//
// @Param       date          query  string  false "Day"           format(date)
// @Param       meal          query  string  false "Meal"          Enums(cafe, almoco, janta, ceia)
// @Param       mess_hall_id  query  int     true  "Mess hall ID"  minimum(1)
// @Param       If-None-Match header string  false "ETag from a previous response"
//
// @Success     200  {object} handlers.ListPresencesResponse
// @Success     304  "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /presences [get]
func (h *Handlers) ListPresences(c *gin.Context) {
	ctx := c.Request.Context()
	slot, err := h.querySlot(c)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}

	// ETag pre-check (best effort).
	if count, latest, err := h.presences.Stats(ctx, slot); err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"presences:%s:%s:%d:%d:%d"`, slot.Date, slot.Meal, slot.MessHallID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	rows, err := h.presences.List(ctx, slot)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if rows == nil {
		rows = []services.PresenceView{}
	}
	ok(c, http.StatusOK, ListPresencesResponse{Slot: slot, Presences: rows, Total: len(rows)})
}

// ConfirmPresence godoc
// @ID          confirmPresence
// @Summary     Confirm a presence
// @Description Records that user_id entered the mess hall for the slot. A
// @Description presence that already exists is not an error: the response is
// @Description 200 with already_registered=true. Supports Idempotency-Key.
// @Tags        Presences
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string                            false "Fiscal user ID"
// @Param       Idempotency-Key  header  string                            false "Idempotency key for safe retries"
// @Param       body             body    handlers.ConfirmPresenceRequest   true  "Presence"
//
// @Success     201  {object} services.ConfirmResult "Created"
// @Success     200  {object} services.ConfirmResult "Already registered or replayed"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /presences [post]
func (h *Handlers) ConfirmPresence(c *gin.Context) {
	ctx := c.Request.Context()

	var req ConfirmPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	fiscal := userID(c)
	scope := middleware.IdempotencyScope(c)

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if rec, err := h.idem.Lookup(ctx, fiscal, scope, idemKey); err == nil && rec != nil {
			if prev, err := h.presences.Get(ctx, rec.ResourceID); err == nil {
				c.Header(middleware.HeaderIdempotencyReplayed, "true")
				ok(c, rec.Status, services.ConfirmResult{Presence: prev, AlreadyRegistered: rec.Status == http.StatusOK})
				return
			}
		}
	}

	res, err := h.presences.Confirm(ctx, req.UserID, req.slot())
	if err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	status := http.StatusCreated
	if res.AlreadyRegistered {
		status = http.StatusOK
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.idem != nil && res.Presence != nil {
		if err := h.idem.Remember(ctx, fiscal, scope, idemKey, res.Presence.ID, status); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}
	ok(c, status, res)
}

// DeletePresence godoc
// @ID          deletePresence
// @Summary     Delete a presence
// @Tags        Presences
//
// @Param       id  path  string  true  "Presence ID (UUID)"  format(uuid)
//
// @Success     204
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Presence not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /presences/{id} [delete]
func (h *Handlers) DeletePresence(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "presence id must be a UUID")
		return
	}
	if err := h.presences.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	noContent(c)
}

// AddOtherPresence godoc
// @ID          addOtherPresence
// @Summary     Record a walk-in
// @Description Counts one diner without a registered user for the slot. The
// @Description caller is recorded as the responsible fiscal.
// @Tags        Presences
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                false "Fiscal user ID"
// @Param       body       body    handlers.SlotRequest  true  "Slot"
//
// @Success     201  {object} domain.OtherPresence
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /presences/others [post]
func (h *Handlers) AddOtherPresence(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	row, err := h.presences.AddOther(c.Request.Context(), userID(c), req.slot())
	if err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	ok(c, http.StatusCreated, row)
}

// CountOtherPresences godoc
// @ID          countOtherPresences
// @Summary     Count walk-ins for a slot
// @Tags        Presences
// @Produce     json
//
// @Param       date          query  string  false "Day"           format(date)
// @Param       meal          query  string  false "Meal"          Enums(cafe, almoco, janta, ceia)
// @Param       mess_hall_id  query  int     true  "Mess hall ID"  minimum(1)
//
// @Success     200  {object} handlers.CountResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /presences/others/count [get]
func (h *Handlers) CountOtherPresences(c *gin.Context) {
	slot, err := h.querySlot(c)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	n, err := h.presences.CountOthers(c.Request.Context(), slot)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}
