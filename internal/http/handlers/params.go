package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/services"
	"github.com/tbourn/go-sisub-backend/internal/utils"
)

// bindError answers a failed ShouldBind* with the most specific code.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "meal":
			fail(c, http.StatusBadRequest, ErrCodeInvalidMeal, fmt.Sprintf("%s: invalid meal %q", fe.Field(), fe.Value()))
		case "isodate":
			fail(c, http.StatusBadRequest, ErrCodeInvalidDate, fmt.Sprintf("%s: expected YYYY-MM-DD, got %q", fe.Field(), fe.Value()))
		default:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
}

// queryDate reads an optional YYYY-MM-DD parameter.
func queryDate(c *gin.Context, name string) (domain.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", services.ErrInvalidDate, name)
	}
	return d, nil
}

// queryMeal reads an optional meal parameter.
func queryMeal(c *gin.Context, name string) (domain.Meal, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", nil
	}
	m, err := domain.ParseMeal(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", services.ErrInvalidMeal, raw)
	}
	return m, nil
}

// queryID reads an optional positive id; absent or malformed is 0.
func queryID(c *gin.Context, name string) int64 {
	id := utils.ParseInt64Default(c.Query(name), 0)
	if id < 0 {
		return 0
	}
	return id
}

// querySlot reads date, meal and mess_hall_id. Missing date and meal default
// to the fiscal's current slot (today and the meal served now).
func (h *Handlers) querySlot(c *gin.Context) (services.Slot, error) {
	def := checkin.FilterFor(h.now(), queryID(c, "mess_hall_id"))
	slot := services.Slot{Date: def.Date, Meal: def.Meal, MessHallID: def.MessHallID}

	d, err := queryDate(c, "date")
	if err != nil {
		return slot, err
	}
	if d != "" {
		slot.Date = d
	}
	m, err := queryMeal(c, "meal")
	if err != nil {
		return slot, err
	}
	if m != "" {
		slot.Meal = m
	}
	return slot, slot.Validate()
}

// queryRange reads start and end. Missing bounds default to the window of
// dashboardDays ending today.
func (h *Handlers) queryRange(c *gin.Context) (aggregate.DateRange, error) {
	today := domain.DateOf(h.now())
	rng := aggregate.DateRange{Start: today.AddDays(-(h.dashboardDays - 1)), End: today}

	start, err := queryDate(c, "start")
	if err != nil {
		return rng, err
	}
	end, err := queryDate(c, "end")
	if err != nil {
		return rng, err
	}
	if start != "" {
		rng.Start = start
	}
	if end != "" {
		rng.End = end
	}
	if rng.End < rng.Start {
		return rng, fmt.Errorf("%w: end before start", services.ErrInvalidDate)
	}
	return rng, nil
}

// queryScope reads unit_id and mess_hall_id.
func queryScope(c *gin.Context) services.DashboardScope {
	return services.DashboardScope{UnitID: queryID(c, "unit_id"), MessHallID: queryID(c, "mess_hall_id")}
}
