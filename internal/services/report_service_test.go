package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

func TestReportService_ParseQuery(t *testing.T) {
	s := NewReportService(nil, 0, 500)
	if s.DefaultLimit != 500 {
		t.Fatalf("default limit must be clamped to max, got %d", s.DefaultLimit)
	}

	q, err := s.ParseQuery(repo.ReportWhereWhoWhen, url.Values{
		"startDate":     {"2025-03-01"},
		"endDate":       {"2025-03-31"},
		"meal":          {"almoco,JANTA"},
		"mess_hall_id":  {"1"},
		"user_id_ilike": {"ab"},
		"order":         {"date:desc,user_id"},
		"limit":         {"999999"},
	})
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if q.Start != "2025-03-01" || q.End != "2025-03-31" || q.Limit != 500 {
		t.Fatalf("unexpected range/limit: %+v", q)
	}
	if got := q.Equals["meal"]; len(got) != 2 || got[0] != "almoco" || got[1] != "janta" {
		t.Fatalf("meal filter: %v", got)
	}
	if got := q.Equals["mess_hall_id"]; len(got) != 1 || got[0] != int64(1) {
		t.Fatalf("mess_hall_id filter: %v", got)
	}
	if q.Contains["user_id"] != "ab" {
		t.Fatalf("ilike filter: %v", q.Contains)
	}
	if len(q.Order) != 2 || !q.Order[0].Desc || q.Order[1].Column != "user_id" || q.Order[1].Desc {
		t.Fatalf("order: %+v", q.Order)
	}

	q, _ = s.ParseQuery(repo.ReportForecastTotals, url.Values{"limit": {"0"}})
	if q.Limit != 1 {
		t.Fatalf("limit must clamp to 1, got %d", q.Limit)
	}

	bad := []url.Values{
		{"date": {"2025-02-30"}},
		{"startDate": {"2025-03-05"}, "endDate": {"2025-03-01"}},
		{"unknown": {"x"}},
		{"email_ilike": {"x"}},
		{"order": {"total"}},
		{"order": {"date:sideways"}},
		{"meal": {"lanche"}},
		{"mess_hall_id": {"abc"}},
		{"limit": {"ten"}},
	}
	for _, p := range bad {
		if _, err := s.ParseQuery(repo.ReportWhereWhoWhen, p); !errors.Is(err, ErrInvalidReportParam) {
			t.Fatalf("ParseQuery(%v) = %v; want ErrInvalidReportParam", p, err)
		}
	}
}

func TestReportService_Run(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	mustCreate(t, db,
		&domain.Forecast{UserID: "a", Date: "2025-03-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1},
		&domain.Forecast{UserID: "b", Date: "2025-03-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1},
		&domain.Forecast{UserID: "c", Date: "2025-03-01", Meal: domain.MealAlmoco, WillEat: false, MessHallID: 1},
	)
	s := NewReportService(db, 100, 1000)
	ctx := context.Background()

	out, err := s.Run(ctx, ReportForecasts, url.Values{"date": {"2025-03-01"}, "mess_hall": {"RC"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rows, ok := out.([]repo.TotalRow)
	if !ok || len(rows) != 1 || rows[0].Total != 2 || rows[0].MessHall != "RC" {
		t.Fatalf("unexpected rows: %#v", out)
	}

	out, err = s.Run(ctx, ReportWhereWhoWhen, url.Values{})
	if err != nil {
		t.Fatalf("Run wherewhowhen: %v", err)
	}
	if w, ok := out.([]repo.WhereWhoWhenRow); !ok || len(w) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", out)
	}

	if _, err := s.Run(ctx, "salaries", nil); !errors.Is(err, ErrInvalidReportParam) {
		t.Fatalf("unknown report: %v", err)
	}
}
