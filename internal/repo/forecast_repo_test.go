package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

func TestUpsertForecast_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	f := &domain.Forecast{UserID: "u1", Date: "2025-04-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1}
	if err := UpsertForecast(ctx, db, f); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	f2 := &domain.Forecast{UserID: "u1", Date: "2025-04-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 7}
	if err := UpsertForecast(ctx, db, f2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var rows []domain.Forecast
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0].MessHallID != 7 {
		t.Fatalf("expected a single updated row, got %+v", rows)
	}
}

func TestReplaceForecast_DeletesThenInserts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := UpsertForecast(ctx, db, &domain.Forecast{UserID: "u1", Date: "2025-04-01", Meal: domain.MealCafe, WillEat: true, MessHallID: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ReplaceForecast(ctx, db, &domain.Forecast{UserID: "u1", Date: "2025-04-01", Meal: domain.MealCafe, WillEat: true, MessHallID: 2}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := GetForecast(ctx, db, "u1", "2025-04-01", domain.MealCafe)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessHallID != 2 {
		t.Fatalf("expected mess hall 2, got %d", got.MessHallID)
	}
}

func TestDeleteForecast_ZeroRowsIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	n, err := DeleteForecast(context.Background(), db, "nobody", "2025-04-01", domain.MealCeia)
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestGetForecast_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := GetForecast(context.Background(), db, "u1", "2025-04-01", domain.MealCeia)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListForecasts_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed := []domain.Forecast{
		{UserID: "u1", Date: "2025-04-01", Meal: domain.MealCafe, WillEat: true, MessHallID: 1},
		{UserID: "u1", Date: "2025-04-02", Meal: domain.MealCafe, WillEat: false, MessHallID: 1},
		{UserID: "u2", Date: "2025-04-03", Meal: domain.MealJanta, WillEat: true, MessHallID: 2},
		{UserID: "u2", Date: "2025-05-01", Meal: domain.MealJanta, WillEat: true, MessHallID: 2},
	}
	for i := range seed {
		if err := UpsertForecast(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListForecasts(ctx, db, ForecastFilter{Start: "2025-04-01", End: "2025-04-30", WillEatOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2025-04-01" || got[1].UserID != "u2" {
		t.Fatalf("unexpected rows: %+v", got)
	}

	got, err = ListForecasts(ctx, db, ForecastFilter{UserID: "u1"})
	if err != nil || len(got) != 2 {
		t.Fatalf("by user: err=%v rows=%d", err, len(got))
	}

	got, err = ListForecasts(ctx, db, ForecastFilter{MessHallIDs: []int64{2}, Meal: domain.MealJanta})
	if err != nil || len(got) != 2 {
		t.Fatalf("by hall+meal: err=%v rows=%d", err, len(got))
	}
}
