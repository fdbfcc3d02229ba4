// Reference data handlers.
//
//   - GET /mess-halls        (list or accent-insensitive search)
//   - GET /mess-halls/{id}
//   - GET /units
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/utils"
)

// MessHallsResponse wraps a list of mess halls.
type MessHallsResponse struct {
	MessHalls []domain.MessHall `json:"mess_halls"`
}

// UnitsResponse wraps a list of units.
type UnitsResponse struct {
	Units []domain.Unit `json:"units"`
}

// ListMessHalls godoc
// @ID          listMessHalls
// @Summary     List mess halls
// @Description Lists mess halls ordered by name, optionally restricted to a unit.
// @Description With q, matches code or name ignoring case and accents.
// @Tags        Reference
// @Produce     json
//
// @Param       unit_id  query  int     false "Unit ID"       minimum(1)
// @Param       q        query  string  false "Search text"   example(cassino)
//
// @Success     200  {object} handlers.MessHallsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mess-halls [get]
func (h *Handlers) ListMessHalls(c *gin.Context) {
	ctx := c.Request.Context()
	unitID := queryID(c, "unit_id")

	var (
		halls []domain.MessHall
		err   error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		halls, err = h.halls.Search(ctx, unitID, q)
	} else {
		halls, err = h.halls.List(ctx, unitID)
	}
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if halls == nil {
		halls = []domain.MessHall{}
	}
	ok(c, http.StatusOK, MessHallsResponse{MessHalls: halls})
}

// GetMessHall godoc
// @ID          getMessHall
// @Summary     Get a mess hall
// @Tags        Reference
// @Produce     json
//
// @Param       id  path  int  true  "Mess hall ID"  minimum(1)
//
// @Success     200  {object} domain.MessHall
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Mess hall not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /mess-halls/{id} [get]
func (h *Handlers) GetMessHall(c *gin.Context) {
	id := utils.ParseInt64Default(c.Param("id"), 0)
	if id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeInvalidMessHall, "mess hall id must be a positive integer")
		return
	}
	mh, err := h.halls.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, mh)
}

// ListUnits godoc
// @ID          listUnits
// @Summary     List units
// @Tags        Reference
// @Produce     json
//
// @Success     200  {object} handlers.UnitsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /units [get]
func (h *Handlers) ListUnits(c *gin.Context) {
	units, err := h.halls.Units(c.Request.Context())
	if err != nil {
		failErr(c, err, ErrCodeListFailed)
		return
	}
	if units == nil {
		units = []domain.Unit{}
	}
	ok(c, http.StatusOK, UnitsResponse{Units: units})
}
