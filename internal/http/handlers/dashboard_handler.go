// Dashboard HTTP handlers.
//
//   - GET /dashboard/metrics
//   - GET /dashboard/presences
//   - GET /dashboard/presences/csv
//   - GET /dashboard/users
//
// Without start/end the window is the last DashboardDays days. unit_id and
// mess_hall_id narrow the scope; none means every mess hall.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// DashboardPresencesResponse lists aggregated presence groups.
type DashboardPresencesResponse struct {
	Range   aggregate.DateRange                  `json:"range"`
	Records []aggregate.AggregatedPresenceRecord `json:"records"`
}

// DashboardUsersResponse lists per-user meal details.
type DashboardUsersResponse struct {
	Range aggregate.DateRange        `json:"range"`
	Users []aggregate.UserMealDetail `json:"users"`
}

// DashboardMetrics godoc
// @ID          dashboardMetrics
// @Summary     Dashboard metrics
// @Description Totals, attendance rate, per-meal and per-mess-hall breakdowns
// @Description and the zero-filled daily distribution for the range.
// @Tags        Dashboard
// @Produce     json
//
// @Param       start         query  string  false "First day"     format(date)
// @Param       end           query  string  false "Last day"      format(date)
// @Param       unit_id       query  int     false "Unit ID"
// @Param       mess_hall_id  query  int     false "Mess hall ID"
//
// @Success     200  {object} aggregate.DashboardMetrics
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dashboard/metrics [get]
func (h *Handlers) DashboardMetrics(c *gin.Context) {
	rng, err := h.queryRange(c)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	m, err := h.dashboard.Metrics(c.Request.Context(), rng, queryScope(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, m)
}

// DashboardPresences godoc
// @ID          dashboardPresences
// @Summary     Aggregated presence records
// @Description One record per (date, meal, mess hall) with forecast and
// @Description presence counts and the people in each group.
// @Tags        Dashboard
// @Produce     json
//
// @Param       start         query  string  false "First day"     format(date)
// @Param       end           query  string  false "Last day"      format(date)
// @Param       unit_id       query  int     false "Unit ID"
// @Param       mess_hall_id  query  int     false "Mess hall ID"
//
// @Success     200  {object} handlers.DashboardPresencesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dashboard/presences [get]
func (h *Handlers) DashboardPresences(c *gin.Context) {
	rng, err := h.queryRange(c)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	recs, err := h.dashboard.Presences(c.Request.Context(), rng, queryScope(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if recs == nil {
		recs = []aggregate.AggregatedPresenceRecord{}
	}
	ok(c, http.StatusOK, DashboardPresencesResponse{Range: rng, Records: recs})
}

// DashboardPresencesCSV godoc
// @ID          dashboardPresencesCSV
// @Summary     Export one presence group as CSV
// @Tags        Dashboard
// @Produce     text/csv
//
// @Param       date          query  string  true  "Day"           format(date)
// @Param       meal          query  string  true  "Meal"          Enums(cafe, almoco, janta, ceia)
// @Param       mess_hall_id  query  int     true  "Mess hall ID"  minimum(1)
//
// @Success     200  {string} string "CSV document"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dashboard/presences/csv [get]
func (h *Handlers) DashboardPresencesCSV(c *gin.Context) {
	date := domain.Date(c.Query("date"))
	meal, err := queryMeal(c, "meal")
	if err != nil {
		failErr(c, err, ErrCodeExportFailed)
		return
	}
	hall := queryID(c, "mess_hall_id")

	doc, err := h.dashboard.CSV(c.Request.Context(), date, meal, hall)
	if err != nil {
		failErr(c, err, ErrCodeExportFailed)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="presencas-%s-%s-%d.csv"`, date, meal, hall))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(doc))
}

// DashboardUsers godoc
// @ID          dashboardUsers
// @Summary     Per-user meal details
// @Description For each user with a forecast or presence in the range, lists
// @Description every (date, meal) with forecast and attendance flags.
// @Tags        Dashboard
// @Produce     json
//
// @Param       start         query  string  false "First day"     format(date)
// @Param       end           query  string  false "Last day"      format(date)
// @Param       unit_id       query  int     false "Unit ID"
// @Param       mess_hall_id  query  int     false "Mess hall ID"
//
// @Success     200  {object} handlers.DashboardUsersResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dashboard/users [get]
func (h *Handlers) DashboardUsers(c *gin.Context) {
	rng, err := h.queryRange(c)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	users, err := h.dashboard.UserDetails(c.Request.Context(), rng, queryScope(c))
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if users == nil {
		users = []aggregate.UserMealDetail{}
	}
	ok(c, http.StatusOK, DashboardUsersResponse{Range: rng, Users: users})
}
