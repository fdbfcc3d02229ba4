// Report HTTP handlers: the read-only BI API.
//
//	GET /reports/{name}?date=|startDate=&endDate=&<filter>=v1,v2&<filter>_ilike=x&order=col:desc&limit=N
//
// name is forecasts, presences or wherewhowhen. Responses are cacheable.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/services"
)

var reportNames = map[string]bool{
	services.ReportForecasts:    true,
	services.ReportPresences:    true,
	services.ReportWhereWhoWhen: true,
}

// RunReport godoc
// @ID          runReport
// @Summary     Run a BI report
// @Description forecasts and presences return daily totals per mess hall and
// @Description meal; wherewhowhen lists every presence. Filters: mess_hall,
// @Description mess_hall_id, meal and (wherewhowhen) user_id, as a single value
// @Description or comma list, or <filter>_ilike for substring match.
// @Tags        Reports
// @Produce     json
//
// @Param       name       path   string  true  "Report"  Enums(forecasts, presences, wherewhowhen)
// @Param       date       query  string  false "Single day"   format(date)
// @Param       startDate  query  string  false "First day"    format(date)
// @Param       endDate    query  string  false "Last day"     format(date)
// @Param       order      query  string  false "col:asc|desc,..."  example(date:desc,mess_hall)
// @Param       limit      query  int     false "Row limit"    minimum(1)
//
// @Success     200  {array}  repo.TotalRow
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Unknown report"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reports/{name} [get]
func (h *Handlers) RunReport(c *gin.Context) {
	name := c.Param("name")
	if !reportNames[name] {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown report")
		return
	}
	rows, err := h.reports.Run(c.Request.Context(), name, c.Request.URL.Query())
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if h.reportCacheControl != "" {
		c.Header("Cache-Control", h.reportCacheControl)
	}
	ok(c, http.StatusOK, rows)
}
