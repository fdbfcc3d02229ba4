package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

func TestRunReport_ForecastTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMessHalls(t, db,
		domain.MessHall{ID: 1, UnitID: 1, Code: "1CIA", DisplayName: "Primeira"},
		domain.MessHall{ID: 2, UnitID: 1, Code: "2CIA", DisplayName: "Segunda"},
	)
	for _, f := range []domain.Forecast{
		{UserID: "a", Date: "2025-04-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1},
		{UserID: "b", Date: "2025-04-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1},
		{UserID: "c", Date: "2025-04-01", Meal: domain.MealAlmoco, WillEat: false, MessHallID: 1},
		{UserID: "a", Date: "2025-04-02", Meal: domain.MealJanta, WillEat: true, MessHallID: 2},
	} {
		f := f
		if err := UpsertForecast(ctx, db, &f); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var rows []TotalRow
	if err := RunReport(ctx, db, ReportForecastTotals, ReportQuery{}, &rows); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %+v", rows)
	}
	// default order: date DESC
	if rows[0].Date != "2025-04-02" || rows[1].Total != 2 || rows[1].MessHall != "1CIA" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	rows = nil
	q := ReportQuery{Date: "2025-04-01", Equals: map[string][]any{"mess_hall": {"1CIA", "2CIA"}}}
	if err := RunReport(ctx, db, ReportForecastTotals, q, &rows); err != nil {
		t.Fatalf("run filtered: %v", err)
	}
	if len(rows) != 1 || rows[0].Meal != domain.MealAlmoco {
		t.Fatalf("unexpected filtered rows: %+v", rows)
	}
}

func TestRunReport_WhereWhoWhen_FiltersOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMessHalls(t, db, domain.MessHall{ID: 1, UnitID: 1, Code: "1CIA", DisplayName: "Primeira"})
	for _, u := range []string{"u1", "u2", "u3"} {
		if _, err := CreatePresence(ctx, db, u, "2025-04-01", domain.MealCafe, 1); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var rows []WhereWhoWhenRow
	q := ReportQuery{
		Contains: map[string]string{"mess_hall": "cia"},
		Order:    []OrderRule{{Column: "user_id", Desc: true}},
		Limit:    2,
	}
	if err := RunReport(ctx, db, ReportWhereWhoWhen, q, &rows); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 2 || rows[0].UserID != "u3" || rows[0].MessHall != "1CIA" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRunReport_RejectsUnknownColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	var rows []TotalRow
	if err := RunReport(ctx, db, ReportPresenceTotals, ReportQuery{Order: []OrderRule{{Column: "1; DROP TABLE x"}}}, &rows); err == nil {
		t.Fatalf("expected error for non-whitelisted order column")
	}
	if err := RunReport(ctx, db, ReportPresenceTotals, ReportQuery{Equals: map[string][]any{"user_id": {"x"}}}, &rows); err == nil {
		t.Fatalf("expected error for unknown filter on presences report")
	}
}

func TestRunReport_ContainsMatchesWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedMessHalls(t, db,
		domain.MessHall{ID: 1, UnitID: 1, Code: "A_B", DisplayName: "Underscore"},
		domain.MessHall{ID: 2, UnitID: 1, Code: "AXB", DisplayName: "Letter"},
		domain.MessHall{ID: 3, UnitID: 1, Code: "50%OFF", DisplayName: "Percent"},
	)
	for hall, user := range map[int64]string{1: "u1", 2: "u2", 3: "u3"} {
		if _, err := CreatePresence(ctx, db, user, "2025-04-01", domain.MealCafe, hall); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cases := []struct {
		sub  string
		want []string
	}{
		{"a_b", []string{"A_B"}},
		{"_", []string{"A_B"}},
		{"0%o", []string{"50%OFF"}},
		{"%", []string{"50%OFF"}},
		{"a\\b", nil},
		{"b", []string{"AXB", "A_B"}},
	}
	for _, tc := range cases {
		t.Run(tc.sub, func(t *testing.T) {
			var rows []WhereWhoWhenRow
			q := ReportQuery{
				Contains: map[string]string{"mess_hall": tc.sub},
				Order:    []OrderRule{{Column: "mess_hall"}},
			}
			if err := RunReport(ctx, db, ReportWhereWhoWhen, q, &rows); err != nil {
				t.Fatalf("run: %v", err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.MessHall)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("contains %q: got %v want %v", tc.sub, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("contains %q: got %v want %v", tc.sub, got, tc.want)
				}
			}
		})
	}
}
