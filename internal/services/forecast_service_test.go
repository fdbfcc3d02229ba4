package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

func TestForecastService_Days(t *testing.T) {
	s := NewForecastService(nil, nil, 7)
	days := s.Days(time.Date(2025, 2, 26, 15, 0, 0, 0, time.UTC))
	if len(days) != 7 || days[0] != "2025-02-26" || days[6] != "2025-03-04" {
		t.Fatalf("Days = %v", days)
	}
}

func TestForecastService_Selections(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	ctx := context.Background()
	mustCreate(t, db,
		&domain.UserData{ID: "u1", Email: "u1@x", DefaultMessHallID: ptr(int64(2))},
		&domain.Forecast{UserID: "u1", Date: "2025-03-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1},
		&domain.Forecast{UserID: "u1", Date: "2025-03-02", Meal: domain.MealJanta, WillEat: true, MessHallID: 1},
	)
	s := NewForecastService(db, nil, 3)
	days := []domain.Date{"2025-03-01", "2025-03-02", "2025-03-03"}
	pending := []forecast.Change{
		{Date: "2025-03-02", Meal: domain.MealJanta, Value: false},
		{Date: "2025-03-03", Meal: domain.MealCafe, Value: true, MessHallID: 1},
	}

	sel, err := s.Selections(ctx, "u1", days, pending)
	if err != nil {
		t.Fatalf("Selections: %v", err)
	}
	if sel.DefaultMessHallID != 2 || len(sel.Days) != 3 {
		t.Fatalf("unexpected selections: %+v", sel)
	}
	d0, d1, d2 := sel.Days[0], sel.Days[1], sel.Days[2]
	if !d0.Meals[domain.MealAlmoco] || d0.Meals[domain.MealCafe] || d0.MessHallID != 1 {
		t.Fatalf("day 0: %+v", d0)
	}
	if d1.Meals[domain.MealJanta] {
		t.Fatalf("pending false must override stored true: %+v", d1)
	}
	if !d2.Meals[domain.MealCafe] || d2.MessHallID != 1 {
		t.Fatalf("day 2 from pending: %+v", d2)
	}
	if len(d2.Meals) != len(domain.Meals) {
		t.Fatalf("every meal must be present: %+v", d2.Meals)
	}

	sel, err = s.Selections(ctx, "nobody", days[:1], nil)
	if err != nil || sel.DefaultMessHallID != 0 || sel.Days[0].MessHallID != 0 {
		t.Fatalf("unknown user: %+v %v", sel, err)
	}
}

func TestForecastService_ListRejectsBadRange(t *testing.T) {
	s := NewForecastService(newSvcDB(t), nil, 30)
	if _, err := s.List(context.Background(), "u1", "2025-03-05", "2025-03-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestForecastService_SetDefaultMessHall(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	s := NewForecastService(db, nil, 30)
	ctx := context.Background()

	for _, id := range []int64{0, -3, 77} {
		err := s.SetDefaultMessHall(ctx, "u1", "u1@x", id)
		if !errors.Is(err, ErrInvalidDefaultMessHall) || err.Error() != "Rancho padrão inválido." {
			t.Fatalf("id %d: expected ErrInvalidDefaultMessHall, got %v", id, err)
		}
	}
	if err := s.SetDefaultMessHall(ctx, "u1", "u1@x", 2); err != nil {
		t.Fatalf("SetDefaultMessHall: %v", err)
	}
	u, err := repo.GetUserData(ctx, db, "u1")
	if err != nil || u.DefaultMessHallID == nil || *u.DefaultMessHallID != 2 {
		t.Fatalf("stored default: %+v %v", u, err)
	}
}

func TestForecastService_SetDefaultMessHallInvalidatesPeople(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	rdb, mock := redismock.NewClientMock()
	s := NewForecastService(db, cache.New(rdb, time.Minute, zerolog.Nop()), 30)

	mock.ExpectScan(0, "sisub:people:*", 100).SetVal([]string{"sisub:people:set:1:9f3a"}, 0)
	mock.ExpectDel("sisub:people:set:1:9f3a").SetVal(1)
	mock.ExpectScan(0, "sisub:dashboard:*", 100).SetVal([]string{"sisub:dashboard:presences:abc"}, 0)
	mock.ExpectDel("sisub:dashboard:presences:abc").SetVal(1)

	if err := s.SetDefaultMessHall(context.Background(), "u1", "u1@x", 1); err != nil {
		t.Fatalf("SetDefaultMessHall: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}

// rejectForecastUpserts makes every ON CONFLICT insert into meal_forecasts
// fail with upsertErr, as drivers without upsert support do. Plain inserts
// pass. It returns a counter of rejected statements.
func rejectForecastUpserts(t *testing.T, db *gorm.DB, upsertErr error) *int {
	t.Helper()
	rejected := new(int)
	err := db.Callback().Create().Before("gorm:create").Register("test:reject_forecast_upsert", func(tx *gorm.DB) {
		if tx.Statement.Table != "meal_forecasts" {
			return
		}
		if _, ok := tx.Statement.Clauses["ON CONFLICT"]; ok {
			*rejected++
			_ = tx.AddError(upsertErr)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return rejected
}

func TestForecastStore_WriteFallsBackToReplace(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	ctx := context.Background()
	mustCreate(t, db, &domain.Forecast{UserID: "u1", Date: "2025-03-01", Meal: domain.MealAlmoco, WillEat: true, MessHallID: 1})
	rejected := rejectForecastUpserts(t, db, gorm.ErrDuplicatedKey)

	st := NewForecastStore(db, nil)
	c := forecast.Change{Date: "2025-03-01", Meal: domain.MealAlmoco, Value: true, MessHallID: 2}
	if err := st.Write(ctx, "u1", c); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if *rejected != 1 {
		t.Fatalf("upsert attempts=%d, want 1", *rejected)
	}
	var rows []domain.Forecast
	db.Where("user_id = ? AND date = ? AND meal = ?", "u1", c.Date, c.Meal).Find(&rows)
	if len(rows) != 1 || rows[0].MessHallID != 2 || !rows[0].WillEat {
		t.Fatalf("rows after replace: %+v", rows)
	}
}

func TestForecastStore_WriteKeepsOtherUpsertErrors(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	rejectForecastUpserts(t, db, errBoom)

	st := NewForecastStore(db, nil)
	c := forecast.Change{Date: "2025-03-01", Meal: domain.MealCafe, Value: true, MessHallID: 1}
	if err := st.Write(context.Background(), "u1", c); !errors.Is(err, errBoom) {
		t.Fatalf("expected the upsert error, got %v", err)
	}
	var n int64
	db.Model(&domain.Forecast{}).Count(&n)
	if n != 0 {
		t.Fatalf("no row should be written, got %d", n)
	}
}

func TestForecastStore_Write(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	st := NewForecastStore(db, nil)
	ctx := context.Background()

	c := forecast.Change{Date: "2025-03-01", Meal: domain.MealAlmoco, Value: true, MessHallID: 1}
	if err := st.Write(ctx, "u1", c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	c.MessHallID = 2
	if err := st.Write(ctx, "u1", c); err != nil {
		t.Fatalf("update: %v", err)
	}
	f, err := repo.GetForecast(ctx, db, "u1", c.Date, c.Meal)
	if err != nil || f.MessHallID != 2 || !f.WillEat {
		t.Fatalf("after update: %+v %v", f, err)
	}

	bad := forecast.Change{Date: "2025-03-01", Meal: domain.MealJanta, Value: true}
	if err := st.Write(ctx, "u1", bad); !errors.Is(err, forecast.ErrInvalidMessHall) {
		t.Fatalf("missing hall: expected ErrInvalidMessHall, got %v", err)
	}
	bad.MessHallID = 99
	if err := st.Write(ctx, "u1", bad); !errors.Is(err, forecast.ErrInvalidMessHall) {
		t.Fatalf("unknown hall: expected ErrInvalidMessHall, got %v", err)
	}

	c.Value = false
	if err := st.Write(ctx, "u1", c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Write(ctx, "u1", c); err != nil {
		t.Fatalf("delete of missing row must not fail: %v", err)
	}
	if _, err := repo.GetForecast(ctx, db, "u1", c.Date, c.Meal); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected row gone, got %v", err)
	}
}

func TestForecastStore_DrivesQueue(t *testing.T) {
	db := newSvcDB(t)
	seedHalls(t, db)
	q := forecast.NewQueue("u1", NewForecastStore(db, nil), forecast.Options{SaveDelay: time.Hour, Concurrency: 1})
	defer q.Close()

	_ = q.Put(forecast.Change{Date: "2025-03-01", Meal: domain.MealCafe, Value: true, MessHallID: 1})
	_ = q.Put(forecast.Change{Date: "2025-03-01", Meal: domain.MealCeia, Value: true})
	res := q.Flush(context.Background())
	if res.Outcome != forecast.OutcomePartial || len(res.Saved) != 1 || len(res.Failed) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if q.Len() != 1 {
		t.Fatalf("failed change must stay pending, len=%d", q.Len())
	}
}
