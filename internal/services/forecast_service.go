// Package services – ForecastService
//
// ForecastService serves a user's meal forecasts for the upcoming days and
// persists the preferred mess hall. ForecastStore is the forecast.Writer the
// save queues use: value=true upserts, value=false deletes.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// MaxForecastDays bounds an explicit start/end range on the forecast grid.
const MaxForecastDays = 92

// DaySelection is one row of the forecast grid.
type DaySelection struct {
	Date       domain.Date          `json:"date"`
	Meals      map[domain.Meal]bool `json:"meals"`
	MessHallID int64                `json:"mess_hall_id"`
}

// Selections is the forecast grid for a user.
type Selections struct {
	Days              []DaySelection `json:"days"`
	DefaultMessHallID int64          `json:"default_mess_hall_id"`
}

// ForecastService reads forecasts and user preferences.
type ForecastService struct {
	DB    *gorm.DB
	Cache *cache.Service

	// DaysToShow is the length of the forecast grid.
	DaysToShow int
}

// NewForecastService constructs a ForecastService.
func NewForecastService(db *gorm.DB, c *cache.Service, daysToShow int) *ForecastService {
	if daysToShow <= 0 {
		daysToShow = 30
	}
	return &ForecastService{DB: db, Cache: c, DaysToShow: daysToShow}
}

// Days returns DaysToShow consecutive days starting at now's date.
func (s *ForecastService) Days(now time.Time) []domain.Date {
	start := domain.DateOf(now)
	return domain.Range(start, start.AddDays(s.DaysToShow-1))
}

// List returns the user's forecasts between start and end inclusive.
func (s *ForecastService) List(ctx context.Context, userID string, start, end domain.Date) ([]domain.Forecast, error) {
	tr := otel.Tracer("services/ForecastService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.String("start", start.String()),
			attribute.String("end", end.String()),
		))
	defer span.End()

	if !start.Valid() || !end.Valid() || end < start {
		return nil, ErrInvalidDate
	}
	return repo.ListForecasts(ctx, s.DB, repo.ForecastFilter{UserID: userID, Start: start, End: end})
}

// Selections builds the grid for days. Every meal starts false and takes
// will_eat from stored rows, then from pending (unsaved) changes. A day's
// mess hall is the one of its stored forecasts, then pending changes, then
// the user's default.
func (s *ForecastService) Selections(ctx context.Context, userID string, days []domain.Date, pending []forecast.Change) (Selections, error) {
	tr := otel.Tracer("services/ForecastService")
	ctx, span := tr.Start(ctx, "Selections",
		trace.WithAttributes(attribute.String("user_id", userID), attribute.Int("days", len(days))))
	defer span.End()

	out := Selections{Days: make([]DaySelection, 0, len(days))}
	if u, err := repo.GetUserData(ctx, s.DB, userID); err == nil && u.DefaultMessHallID != nil {
		out.DefaultMessHallID = *u.DefaultMessHallID
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return out, err
	}
	if len(days) == 0 {
		return out, nil
	}

	rows, err := repo.ListForecasts(ctx, s.DB, repo.ForecastFilter{
		UserID: userID, Start: days[0], End: days[len(days)-1],
	})
	if err != nil {
		return out, err
	}

	idx := make(map[domain.Date]int, len(days))
	for i, d := range days {
		meals := make(map[domain.Meal]bool, len(domain.Meals))
		for _, m := range domain.Meals {
			meals[m] = false
		}
		idx[d] = i
		out.Days = append(out.Days, DaySelection{Date: d, Meals: meals})
	}
	apply := func(d domain.Date, m domain.Meal, v bool, hall int64) {
		i, ok := idx[d]
		if !ok {
			return
		}
		out.Days[i].Meals[m] = v
		if hall > 0 {
			out.Days[i].MessHallID = hall
		}
	}
	for _, f := range rows {
		apply(f.Date, f.Meal, f.WillEat, f.MessHallID)
	}
	for _, c := range pending {
		apply(c.Date, c.Meal, c.Value, c.MessHallID)
	}
	for i := range out.Days {
		if out.Days[i].MessHallID == 0 {
			out.Days[i].MessHallID = out.DefaultMessHallID
		}
	}
	return out, nil
}

// SetDefaultMessHall stores messHallID as the user's preferred mess hall.
func (s *ForecastService) SetDefaultMessHall(ctx context.Context, userID, email string, messHallID int64) error {
	tr := otel.Tracer("services/ForecastService")
	ctx, span := tr.Start(ctx, "SetDefaultMessHall",
		trace.WithAttributes(attribute.String("user_id", userID), attribute.Int64("mess_hall_id", messHallID)))
	defer span.End()

	if messHallID <= 0 {
		return ErrInvalidDefaultMessHall
	}
	if _, err := repo.GetMessHall(ctx, s.DB, messHallID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidDefaultMessHall
		}
		return err
	}
	if err := repo.SetDefaultMessHall(ctx, s.DB, userID, email, messHallID); err != nil {
		return err
	}
	// People are cached per user set and dashboards embed their e-mails.
	for _, entity := range []string{cache.EntityPeople, cache.EntityDashboard} {
		if err := s.Cache.InvalidateEntity(ctx, entity); err != nil {
			span.RecordError(err)
		}
	}
	return nil
}

// ForecastStore persists forecast changes for the save queues.
type ForecastStore struct {
	DB    *gorm.DB
	Cache *cache.Service
}

// NewForecastStore constructs a ForecastStore.
func NewForecastStore(db *gorm.DB, c *cache.Service) *ForecastStore {
	return &ForecastStore{DB: db, Cache: c}
}

var _ forecast.Writer = (*ForecastStore)(nil)

// Write applies c for userID. A positive change needs an existing mess hall;
// an upsert rejected by a unique constraint is retried as delete+insert.
func (s *ForecastStore) Write(ctx context.Context, userID string, c forecast.Change) error {
	tr := otel.Tracer("services/ForecastStore")
	ctx, span := tr.Start(ctx, "Write",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.String("date", c.Date.String()),
			attribute.String("meal", string(c.Meal)),
			attribute.Bool("value", c.Value),
		))
	defer span.End()

	if err := c.Validate(); err != nil {
		return err
	}
	defer func() { _ = s.Cache.InvalidateEntity(ctx, cache.EntityDashboard) }()

	if !c.Value {
		_, err := repo.DeleteForecast(ctx, s.DB, userID, c.Date, c.Meal)
		return err
	}

	if c.MessHallID <= 0 {
		return forecast.InvalidMessHallError(c)
	}
	if _, err := repo.GetMessHall(ctx, s.DB, c.MessHallID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return forecast.InvalidMessHallError(c)
		}
		return err
	}

	f := &domain.Forecast{UserID: userID, Date: c.Date, Meal: c.Meal, WillEat: true, MessHallID: c.MessHallID}
	err := repo.UpsertForecast(ctx, s.DB, f)
	if err == nil {
		return nil
	}
	if !repo.IsDuplicate(err) {
		return err
	}
	if rerr := repo.ReplaceForecast(ctx, s.DB, f); rerr != nil {
		return fmt.Errorf("replace forecast: %w", rerr)
	}
	return nil
}
