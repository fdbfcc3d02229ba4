package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

func TestDashboardMetrics_DefaultWindowAndScope(t *testing.T) {
	var gotRng aggregate.DateRange
	var gotScope services.DashboardScope
	dash := &stubDashboard{
		metrics: func(_ context.Context, rng aggregate.DateRange, scope services.DashboardScope) (aggregate.DashboardMetrics, error) {
			gotRng, gotScope = rng, scope
			return aggregate.DashboardMetrics{TotalForecast: 10, TotalPresence: 7}, nil
		},
	}
	r, _ := newTestEngine(t, Deps{Dashboard: dash, DashboardDays: 7})

	rec := do(r, http.MethodGet, "/dashboard/metrics?unit_id=3", "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if gotRng.Start != "2025-03-04" || gotRng.End != "2025-03-10" {
		t.Fatalf("range=%+v", gotRng)
	}
	if gotScope != (services.DashboardScope{UnitID: 3}) {
		t.Fatalf("scope=%+v", gotScope)
	}
	if m := decode[aggregate.DashboardMetrics](t, rec); m.TotalForecast != 10 || m.TotalPresence != 7 {
		t.Fatalf("metrics=%+v", m)
	}

	do(r, http.MethodGet, "/dashboard/metrics?start=2025-02-01&end=2025-02-28&mess_hall_id=9", "admin", nil)
	if gotRng.Start != "2025-02-01" || gotRng.End != "2025-02-28" || gotScope.MessHallID != 9 {
		t.Fatalf("range=%+v scope=%+v", gotRng, gotScope)
	}

	expectError(t, do(r, http.MethodGet, "/dashboard/metrics?start=2025-03-10&end=2025-03-01", "admin", nil),
		http.StatusBadRequest, ErrCodeInvalidDate)
}

func TestDashboardPresencesAndUsers(t *testing.T) {
	dash := &stubDashboard{
		presences: func(context.Context, aggregate.DateRange, services.DashboardScope) ([]aggregate.AggregatedPresenceRecord, error) {
			return []aggregate.AggregatedPresenceRecord{{Date: "2025-03-10", Meal: domain.MealCafe, MessHallID: 1, ForecastCount: 2, PresenceCount: 1}}, nil
		},
		users: func(context.Context, aggregate.DateRange, services.DashboardScope) ([]aggregate.UserMealDetail, error) {
			return nil, nil
		},
	}
	r, _ := newTestEngine(t, Deps{Dashboard: dash})

	rec := do(r, http.MethodGet, "/dashboard/presences", "admin", nil)
	resp := decode[DashboardPresencesResponse](t, rec)
	if len(resp.Records) != 1 || resp.Records[0].PresenceCount != 1 {
		t.Fatalf("resp=%+v", resp)
	}
	// default window is 30 days ending today
	if resp.Range.Start != "2025-02-09" || resp.Range.End != "2025-03-10" {
		t.Fatalf("range=%+v", resp.Range)
	}

	rec = do(r, http.MethodGet, "/dashboard/users", "admin", nil)
	if users := decode[DashboardUsersResponse](t, rec); users.Users == nil || len(users.Users) != 0 {
		t.Fatalf("users=%+v", users)
	}
}

func TestDashboardPresencesCSV(t *testing.T) {
	var gotDate domain.Date
	var gotMeal domain.Meal
	dash := &stubDashboard{
		csv: func(_ context.Context, date domain.Date, meal domain.Meal, hall int64) (string, error) {
			gotDate, gotMeal = date, meal
			if hall <= 0 {
				return "", services.ErrUnitRequired
			}
			if !meal.Valid() {
				return "", services.ErrInvalidMeal
			}
			return aggregate.CSVHeader, nil
		},
	}
	r, _ := newTestEngine(t, Deps{Dashboard: dash})

	q := url.Values{"date": {"2025-03-10"}, "meal": {"Almoco"}, "mess_hall_id": {"2"}}
	rec := do(r, http.MethodGet, "/dashboard/presences/csv?"+q.Encode(), "admin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="presencas-2025-03-10-almoco-2.csv"` {
		t.Fatalf("content-disposition=%q", cd)
	}
	if rec.Body.String() != aggregate.CSVHeader || gotDate != "2025-03-10" || gotMeal != domain.MealAlmoco {
		t.Fatalf("body=%q date=%s meal=%s", rec.Body.String(), gotDate, gotMeal)
	}

	expectError(t, do(r, http.MethodGet, "/dashboard/presences/csv?date=2025-03-10&meal=cafe", "admin", nil),
		http.StatusBadRequest, ErrCodeUnitRequired)
	expectError(t, do(r, http.MethodGet, "/dashboard/presences/csv?date=2025-03-10&meal=brunch&mess_hall_id=2", "admin", nil),
		http.StatusBadRequest, ErrCodeInvalidMeal)
	expectError(t, do(r, http.MethodGet, "/dashboard/presences/csv?date=2025-03-10&mess_hall_id=2", "admin", nil),
		http.StatusBadRequest, ErrCodeInvalidMeal)
}
