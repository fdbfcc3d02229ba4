// Package services – DashboardService
//
// DashboardService loads forecasts, presences and reference data for a
// period and hands them to the aggregate package. Results are cached under
// the dashboard entity, which presence and forecast writes invalidate.
package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// MaxDashboardDays bounds the period of a dashboard query.
const MaxDashboardDays = 366

// DashboardScope selects the mess halls a dashboard covers. MessHallID wins
// over UnitID; both zero means every hall.
type DashboardScope struct {
	UnitID     int64
	MessHallID int64
}

func (sc DashboardScope) key() string {
	return fmt.Sprintf("u%d:h%d", sc.UnitID, sc.MessHallID)
}

// DashboardService computes dashboard views.
type DashboardService struct {
	DB        *gorm.DB
	Cache     *cache.Service
	MessHalls *MessHallService
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB, c *cache.Service, halls *MessHallService) *DashboardService {
	return &DashboardService{DB: db, Cache: c, MessHalls: halls}
}

// Metrics returns the period overview for the scope.
func (s *DashboardService) Metrics(ctx context.Context, rng aggregate.DateRange, scope DashboardScope) (aggregate.DashboardMetrics, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "Metrics", trace.WithAttributes(rangeAttrs(rng, scope)...))
	defer span.End()

	if err := validRange(rng); err != nil {
		return aggregate.DashboardMetrics{}, err
	}
	key := "metrics:" + string(rng.Start) + ":" + string(rng.End) + ":" + scope.key()
	return cache.GetOrLoad(ctx, s.Cache, cache.EntityDashboard, key, func(ctx context.Context) (aggregate.DashboardMetrics, error) {
		halls, err := s.halls(ctx, scope)
		if err != nil {
			return aggregate.DashboardMetrics{}, err
		}
		fs, ps, err := s.load(ctx, rng, scope, halls)
		if err != nil {
			return aggregate.DashboardMetrics{}, err
		}
		return aggregate.AggregateDashboardMetrics(fs, ps, halls, rng), nil
	})
}

// Presences returns the aggregated presence records for the scope, ordered
// by date, meal and mess hall.
func (s *DashboardService) Presences(ctx context.Context, rng aggregate.DateRange, scope DashboardScope) ([]aggregate.AggregatedPresenceRecord, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "Presences", trace.WithAttributes(rangeAttrs(rng, scope)...))
	defer span.End()

	if err := validRange(rng); err != nil {
		return nil, err
	}
	key := "presences:" + string(rng.Start) + ":" + string(rng.End) + ":" + scope.key()
	return cache.GetOrLoad(ctx, s.Cache, cache.EntityDashboard, key, func(ctx context.Context) ([]aggregate.AggregatedPresenceRecord, error) {
		halls, err := s.halls(ctx, scope)
		if err != nil {
			return nil, err
		}
		fs, ps, err := s.load(ctx, rng, scope, halls)
		if err != nil {
			return nil, err
		}
		dir, err := loadDirectory(ctx, s.DB, s.Cache, halls, userIDs(fs, ps))
		if err != nil {
			return nil, err
		}
		return aggregate.AggregatePresenceData(fs, ps, dir), nil
	})
}

// CSV exports the person lists of one (date, meal, mess hall) group. A group
// without activity yields the header only.
func (s *DashboardService) CSV(ctx context.Context, date domain.Date, meal domain.Meal, messHallID int64) (string, error) {
	if !date.Valid() {
		return "", ErrInvalidDate
	}
	if !meal.Valid() {
		return "", ErrInvalidMeal
	}
	if messHallID <= 0 {
		return "", ErrUnitRequired
	}
	recs, err := s.Presences(ctx, aggregate.DateRange{Start: date, End: date}, DashboardScope{MessHallID: messHallID})
	if err != nil {
		return "", err
	}
	rec, ok := aggregate.FindRecord(recs, aggregate.SlotKey{Date: date, Meal: meal, MessHallID: messHallID})
	if !ok {
		return aggregate.CSVHeader, nil
	}
	return aggregate.PresenceCSV(rec), nil
}

// UserDetails lists, per user with activity in the period, the meals they
// forecasted and attended.
func (s *DashboardService) UserDetails(ctx context.Context, rng aggregate.DateRange, scope DashboardScope) ([]aggregate.UserMealDetail, error) {
	tr := otel.Tracer("services/DashboardService")
	ctx, span := tr.Start(ctx, "UserDetails", trace.WithAttributes(rangeAttrs(rng, scope)...))
	defer span.End()

	if err := validRange(rng); err != nil {
		return nil, err
	}
	halls, err := s.halls(ctx, scope)
	if err != nil {
		return nil, err
	}
	fs, ps, err := s.load(ctx, rng, scope, halls)
	if err != nil {
		return nil, err
	}
	people, err := loadPeople(ctx, s.DB, s.Cache, userIDs(fs, ps))
	if err != nil {
		return nil, err
	}
	dir := aggregate.NewDirectory(halls, people.Users, people.Military)
	return aggregate.BuildUserMealDetails(fs, ps, people.Users, dir), nil
}

func (s *DashboardService) halls(ctx context.Context, scope DashboardScope) ([]domain.MessHall, error) {
	if scope.MessHallID > 0 {
		h, err := s.MessHalls.Get(ctx, scope.MessHallID)
		if err != nil {
			return nil, err
		}
		return []domain.MessHall{*h}, nil
	}
	return s.MessHalls.List(ctx, scope.UnitID)
}

// load reads the will_eat forecasts and presences of the period. An
// unscoped query is not filtered by hall.
func (s *DashboardService) load(ctx context.Context, rng aggregate.DateRange, scope DashboardScope, hs []domain.MessHall) ([]domain.Forecast, []domain.Presence, error) {
	var halls []int64
	if scope.UnitID > 0 || scope.MessHallID > 0 {
		if len(hs) == 0 {
			return []domain.Forecast{}, []domain.Presence{}, nil
		}
		halls = hallIDs(hs)
	}
	fs, err := repo.ListForecasts(ctx, s.DB, repo.ForecastFilter{
		Start: rng.Start, End: rng.End, MessHallIDs: halls, WillEatOnly: true,
	})
	if err != nil {
		return nil, nil, err
	}
	ps, err := repo.ListPresences(ctx, s.DB, repo.PresenceFilter{
		Start: rng.Start, End: rng.End, MessHallIDs: halls,
	})
	if err != nil {
		return nil, nil, err
	}
	return fs, ps, nil
}

// people is the cached form of the reference rows behind a Directory.
type people struct {
	Users    []domain.UserData     `json:"users"`
	Military []domain.MilitaryData `json:"military"`
}

func loadPeople(ctx context.Context, db *gorm.DB, c *cache.Service, ids []string) (people, error) {
	if len(ids) == 0 {
		return people{Users: []domain.UserData{}, Military: []domain.MilitaryData{}}, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(sorted, ",")))
	key := fmt.Sprintf("set:%d:%x", len(sorted), h.Sum64())

	return cache.GetOrLoad(ctx, c, cache.EntityPeople, key, func(ctx context.Context) (people, error) {
		users, err := repo.ListUserData(ctx, db, sorted)
		if err != nil {
			return people{}, err
		}
		nrs := make([]string, 0, len(users))
		for i := range users {
			if n := users[i].NrOrdem; n != nil && *n != "" {
				nrs = append(nrs, *n)
			}
		}
		mil, err := repo.ListMilitaryData(ctx, db, nrs)
		if err != nil {
			return people{}, err
		}
		for i := range mil {
			mil[i].SgPosto = upperBR(mil[i].SgPosto)
			mil[i].SgOrg = upperBR(mil[i].SgOrg)
		}
		return people{Users: users, Military: mil}, nil
	})
}

// loadDirectory builds a Directory over halls and the users in ids.
func loadDirectory(ctx context.Context, db *gorm.DB, c *cache.Service, halls []domain.MessHall, ids []string) (aggregate.Directory, error) {
	p, err := loadPeople(ctx, db, c, ids)
	if err != nil {
		return aggregate.Directory{}, err
	}
	return aggregate.NewDirectory(halls, p.Users, p.Military), nil
}

func validRange(rng aggregate.DateRange) error {
	if !rng.Start.Valid() || !rng.End.Valid() || rng.End < rng.Start {
		return ErrInvalidDate
	}
	if domain.DaysBetween(rng.Start, rng.End) >= MaxDashboardDays {
		return fmt.Errorf("%w: period longer than %d days", ErrInvalidDate, MaxDashboardDays)
	}
	return nil
}

func hallIDs(halls []domain.MessHall) []int64 {
	out := make([]int64, 0, len(halls))
	for _, h := range halls {
		out = append(out, h.ID)
	}
	return out
}

func userIDs(fs []domain.Forecast, ps []domain.Presence) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, f := range fs {
		add(f.UserID)
	}
	for _, p := range ps {
		add(p.UserID)
	}
	sort.Strings(out)
	return out
}

func rangeAttrs(rng aggregate.DateRange, scope DashboardScope) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("start", rng.Start.String()),
		attribute.String("end", rng.End.String()),
		attribute.Int64("unit_id", scope.UnitID),
		attribute.Int64("mess_hall_id", scope.MessHallID),
	}
}
