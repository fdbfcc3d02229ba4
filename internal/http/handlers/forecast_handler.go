// Forecast HTTP handlers.
//
//   - GET  /forecasts                    (grid for the next days, with pending overlay)
//   - PUT  /forecasts/pending            (queue changes; saved after the debounce)
//   - PUT  /forecasts/pending/mess-hall  (move a day to another mess hall)
//   - GET  /forecasts/pending            (pending changes, cell states, last result)
//   - POST /forecasts/flush              (save queued changes now)
//   - POST /forecasts/batch              (synchronous save, no queue)
//   - PUT  /me/default-mess-hall
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/http/middleware"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

//
// DTOs
//

// ChangeRequest is one forecast cell edit.
type ChangeRequest struct {
	Date       string `json:"date" binding:"required,isodate" example:"2025-03-10"`
	Meal       string `json:"meal" binding:"required,meal" example:"almoco"`
	Value      *bool  `json:"value" binding:"required" example:"true"`
	MessHallID int64  `json:"mess_hall_id" binding:"gte=0" example:"1"`
}

// ChangesRequest carries several edits applied in order. A 30-day grid has
// at most 120 cells, so 500 leaves room for repeated edits.
type ChangesRequest struct {
	Changes []ChangeRequest `json:"changes" binding:"required,min=1,max=500,dive"`
}

// DayMessHallRequest moves a day's selected meals to another mess hall.
type DayMessHallRequest struct {
	Date       string   `json:"date" binding:"required,isodate" example:"2025-03-10"`
	MessHallID int64    `json:"mess_hall_id" binding:"required,gt=0" example:"2"`
	Meals      []string `json:"meals" binding:"omitempty,dive,meal" example:"almoco,janta"`
}

// DefaultMessHallRequest sets the user's preferred mess hall.
type DefaultMessHallRequest struct {
	MessHallID int64  `json:"mess_hall_id" example:"1"`
	Email      string `json:"email" binding:"omitempty,email" example:"fulano@eb.mil.br"`
}

// ForecastsResponse is the forecast grid.
type ForecastsResponse struct {
	Start      domain.Date         `json:"start"`
	End        domain.Date         `json:"end"`
	Forecasts  []domain.Forecast   `json:"forecasts"`
	Selections services.Selections `json:"selections"`
	Pending    []forecast.Change   `json:"pending"`
}

// CellStatus is the save state of one pending cell.
type CellStatus struct {
	Date  domain.Date        `json:"date"`
	Meal  domain.Meal        `json:"meal"`
	State forecast.CellState `json:"state"`
}

// PendingResponse describes the user's queue.
type PendingResponse struct {
	Pending    []forecast.Change `json:"pending"`
	Cells      []CellStatus      `json:"cells"`
	Saving     bool              `json:"saving"`
	LastResult *forecast.Result  `json:"last_result,omitempty"`
}

//
// Helpers
//

func (r ChangeRequest) change() forecast.Change {
	meal, _ := domain.ParseMeal(r.Meal)
	return forecast.Change{Date: domain.Date(r.Date), Meal: meal, Value: *r.Value, MessHallID: r.MessHallID}
}

func changesOf(reqs []ChangeRequest) []forecast.Change {
	out := make([]forecast.Change, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.change())
	}
	return out
}

// queue returns the caller's queue, or answers 503 once the registry is
// closed for shutdown.
func (h *Handlers) queue(c *gin.Context) (q *forecast.Queue, open bool) {
	q = h.queues.Get(userID(c))
	if q == nil {
		failErr(c, forecast.ErrClosed, ErrCodeSaveFailed)
		return nil, false
	}
	return q, true
}

func pendingView(q *forecast.Queue) PendingResponse {
	resp := PendingResponse{Pending: []forecast.Change{}, Cells: []CellStatus{}}
	if q == nil {
		return resp
	}
	resp.Pending = q.Pending()
	for _, ch := range resp.Pending {
		resp.Cells = append(resp.Cells, CellStatus{Date: ch.Date, Meal: ch.Meal, State: q.State(ch.Date, ch.Meal)})
	}
	resp.Saving = q.Saving()
	resp.LastResult = q.LastResult()
	return resp
}

//
// Handlers
//

// ListForecasts godoc
// @ID          listForecasts
// @Summary     Forecast grid
// @Description Returns the user's stored forecasts and the per-day selections
// @Description with queued changes applied. Without start/end the next
// @Description FORECAST_DAYS_TO_SHOW days are used. Explicit ranges are limited
// @Description to 92 days.
// @Tags        Forecasts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID"
// @Param       start      query   string  false "First day"  format(date)
// @Param       end        query   string  false "Last day"   format(date)
//
// @Success     200  {object} handlers.ForecastsResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /forecasts [get]
func (h *Handlers) ListForecasts(c *gin.Context) {
	ctx := c.Request.Context()
	user := userID(c)

	days := h.forecasts.Days(h.now())
	start, err := queryDate(c, "start")
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	end, err := queryDate(c, "end")
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if start != "" || end != "" {
		if start == "" {
			start = days[0]
		}
		if end == "" {
			end = days[len(days)-1]
		}
		if end < start {
			fail(c, http.StatusBadRequest, ErrCodeInvalidDate, "end before start")
			return
		}
		if domain.DaysBetween(start, end) >= services.MaxForecastDays {
			fail(c, http.StatusBadRequest, ErrCodeInvalidDate,
				fmt.Sprintf("period longer than %d days", services.MaxForecastDays))
			return
		}
		days = domain.Range(start, end)
	}

	rows, err := h.forecasts.List(ctx, user, days[0], days[len(days)-1])
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	var pending []forecast.Change
	if q, found := h.queues.Peek(user); found {
		pending = q.Pending()
	}
	sel, err := h.forecasts.Selections(ctx, user, days, pending)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if rows == nil {
		rows = []domain.Forecast{}
	}
	if pending == nil {
		pending = []forecast.Change{}
	}
	ok(c, http.StatusOK, ForecastsResponse{
		Start:      days[0],
		End:        days[len(days)-1],
		Forecasts:  rows,
		Selections: sel,
		Pending:    pending,
	})
}

// QueueForecastChanges godoc
// @ID          queueForecastChanges
// @Summary     Queue forecast changes
// @Description Records edits in the user's pending queue. The latest edit per
// @Description (date, meal) wins; the queue saves itself after the debounce.
// @Tags        Forecasts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                   false "User ID"
// @Param       body       body    handlers.ChangesRequest  true  "Changes"
//
// @Success     202  {object} handlers.PendingResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Shutting down"
// @Router      /forecasts/pending [put]
func (h *Handlers) QueueForecastChanges(c *gin.Context) {
	var req ChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	q, open := h.queue(c)
	if !open {
		return
	}
	if err := q.PutAll(changesOf(req.Changes)); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	ok(c, http.StatusAccepted, pendingView(q))
}

// SetDayMessHall godoc
// @ID          setDayMessHall
// @Summary     Move a day to another mess hall
// @Description Re-queues the given meals, plus every meal already selected
// @Description for that day, with the new mess hall.
// @Tags        Forecasts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                       false "User ID"
// @Param       body       body    handlers.DayMessHallRequest  true  "Day and mess hall"
//
// @Success     202  {object} handlers.PendingResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /forecasts/pending/mess-hall [put]
func (h *Handlers) SetDayMessHall(c *gin.Context) {
	var req DayMessHallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	meals := make([]domain.Meal, 0, len(req.Meals))
	for _, s := range req.Meals {
		m, _ := domain.ParseMeal(s)
		meals = append(meals, m)
	}
	q, open := h.queue(c)
	if !open {
		return
	}
	if err := q.SetMessHall(domain.Date(req.Date), req.MessHallID, meals); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	ok(c, http.StatusAccepted, pendingView(q))
}

// GetPendingForecasts godoc
// @ID          getPendingForecasts
// @Summary     Pending forecast changes
// @Tags        Forecasts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID"
//
// @Success     200  {object} handlers.PendingResponse
// @Router      /forecasts/pending [get]
func (h *Handlers) GetPendingForecasts(c *gin.Context) {
	q, _ := h.queues.Peek(userID(c))
	ok(c, http.StatusOK, pendingView(q))
}

// FlushForecasts godoc
// @ID          flushForecasts
// @Summary     Save queued forecast changes now
// @Description Writes every pending change. If a save is already running the
// @Description call waits for it and returns its result. Failed changes stay
// @Description queued and are listed under rollback.
// @Tags        Forecasts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID"
//
// @Success     200  {object} forecast.Result
// @Router      /forecasts/flush [post]
func (h *Handlers) FlushForecasts(c *gin.Context) {
	q, found := h.queues.Peek(userID(c))
	if !found {
		ok(c, http.StatusOK, forecast.Result{Outcome: forecast.OutcomeNone, FinishedAt: h.now()})
		return
	}
	ok(c, http.StatusOK, q.Flush(c.Request.Context()))
}

// SaveForecastBatch godoc
// @ID          saveForecastBatch
// @Summary     Save forecast changes synchronously
// @Description Writes the given changes immediately without touching the
// @Description user's queue and returns the batch summary.
// @Tags        Forecasts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string                   false "User ID"
// @Param       body       body    handlers.ChangesRequest  true  "Changes"
//
// @Success     200  {object} forecast.Result
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /forecasts/batch [post]
func (h *Handlers) SaveForecastBatch(c *gin.Context) {
	var req ChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	q := forecast.NewQueue(userID(c), h.writer, forecast.Options{
		SaveDelay: time.Hour,
		Now:       h.now,
		Logger:    *middleware.LoggerFrom(c),
	})
	defer q.Close()
	if err := q.PutAll(changesOf(req.Changes)); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	ok(c, http.StatusOK, q.Flush(c.Request.Context()))
}

// SetDefaultMessHall godoc
// @ID          setDefaultMessHall
// @Summary     Set the default mess hall
// @Tags        Forecasts
// @Accept      json
//
// @Param       X-User-ID  header  string                           false "User ID"
// @Param       body       body    handlers.DefaultMessHallRequest  true  "Mess hall"
//
// @Success     204
// @Failure     400  {object} handlers.ErrorResponse "Rancho padrão inválido."
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /me/default-mess-hall [put]
func (h *Handlers) SetDefaultMessHall(c *gin.Context) {
	var req DefaultMessHallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.forecasts.SetDefaultMessHall(c.Request.Context(), userID(c), req.Email, req.MessHallID); err != nil {
		failErr(c, err, ErrCodeSaveFailed)
		return
	}
	noContent(c)
}
