package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/http/middleware"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

// testNow is 2025-03-10 12:00 local, inside the lunch window.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)

var errBoom = errors.New("boom")

//
// Stub services
//

type stubHalls struct {
	list   func(ctx context.Context, unitID int64) ([]domain.MessHall, error)
	get    func(ctx context.Context, id int64) (*domain.MessHall, error)
	search func(ctx context.Context, unitID int64, q string) ([]domain.MessHall, error)
	units  func(ctx context.Context) ([]domain.Unit, error)
}

func (s *stubHalls) List(ctx context.Context, unitID int64) ([]domain.MessHall, error) {
	return s.list(ctx, unitID)
}
func (s *stubHalls) Get(ctx context.Context, id int64) (*domain.MessHall, error) {
	return s.get(ctx, id)
}
func (s *stubHalls) Search(ctx context.Context, unitID int64, q string) ([]domain.MessHall, error) {
	return s.search(ctx, unitID, q)
}
func (s *stubHalls) Units(ctx context.Context) ([]domain.Unit, error) { return s.units(ctx) }

type stubForecasts struct {
	list       func(ctx context.Context, userID string, start, end domain.Date) ([]domain.Forecast, error)
	selections func(ctx context.Context, userID string, days []domain.Date, pending []forecast.Change) (services.Selections, error)
	setDefault func(ctx context.Context, userID, email string, messHallID int64) error
}

func (s *stubForecasts) Days(now time.Time) []domain.Date {
	today := domain.DateOf(now)
	return domain.Range(today, today.AddDays(6))
}
func (s *stubForecasts) List(ctx context.Context, userID string, start, end domain.Date) ([]domain.Forecast, error) {
	if s.list == nil {
		return nil, nil
	}
	return s.list(ctx, userID, start, end)
}
func (s *stubForecasts) Selections(ctx context.Context, userID string, days []domain.Date, pending []forecast.Change) (services.Selections, error) {
	if s.selections == nil {
		return services.Selections{}, nil
	}
	return s.selections(ctx, userID, days, pending)
}
func (s *stubForecasts) SetDefaultMessHall(ctx context.Context, userID, email string, messHallID int64) error {
	return s.setDefault(ctx, userID, email, messHallID)
}

type stubPresences struct {
	get         func(ctx context.Context, id string) (*domain.Presence, error)
	confirm     func(ctx context.Context, userID string, slot services.Slot) (services.ConfirmResult, error)
	del         func(ctx context.Context, id string) error
	list        func(ctx context.Context, slot services.Slot) ([]services.PresenceView, error)
	stats       func(ctx context.Context, slot services.Slot) (int64, *time.Time, error)
	addOther    func(ctx context.Context, adminID string, slot services.Slot) (*domain.OtherPresence, error)
	countOthers func(ctx context.Context, slot services.Slot) (int64, error)
	self        func(ctx context.Context, userID, code string, willEnter bool, now time.Time) (services.SelfCheckinResult, error)
}

func (s *stubPresences) Get(ctx context.Context, id string) (*domain.Presence, error) {
	return s.get(ctx, id)
}
func (s *stubPresences) Confirm(ctx context.Context, userID string, slot services.Slot) (services.ConfirmResult, error) {
	return s.confirm(ctx, userID, slot)
}
func (s *stubPresences) Delete(ctx context.Context, id string) error { return s.del(ctx, id) }
func (s *stubPresences) List(ctx context.Context, slot services.Slot) ([]services.PresenceView, error) {
	return s.list(ctx, slot)
}
func (s *stubPresences) Stats(ctx context.Context, slot services.Slot) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, errBoom
	}
	return s.stats(ctx, slot)
}
func (s *stubPresences) AddOther(ctx context.Context, adminID string, slot services.Slot) (*domain.OtherPresence, error) {
	return s.addOther(ctx, adminID, slot)
}
func (s *stubPresences) CountOthers(ctx context.Context, slot services.Slot) (int64, error) {
	return s.countOthers(ctx, slot)
}
func (s *stubPresences) SelfCheckin(ctx context.Context, userID, code string, willEnter bool, now time.Time) (services.SelfCheckinResult, error) {
	return s.self(ctx, userID, code, willEnter, now)
}

// memIdem is an in-memory IdempotencyStore.
type memIdem struct {
	mu   sync.Mutex
	recs map[string]*domain.Idempotency
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]*domain.Idempotency{}} }

func (m *memIdem) Lookup(_ context.Context, userID, scope, key string) (*domain.Idempotency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs[userID+"|"+scope+"|"+key], nil
}

func (m *memIdem) Remember(_ context.Context, userID, scope, key, resourceID string, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[userID+"|"+scope+"|"+key] = &domain.Idempotency{
		UserID: userID, Scope: scope, Key: key, ResourceID: resourceID, Status: status,
	}
	return nil
}

func (m *memIdem) exists(ctx context.Context, userID, scope, key string, _ time.Time) (bool, error) {
	rec, err := m.Lookup(ctx, userID, scope, key)
	return rec != nil, err
}

type stubDashboard struct {
	metrics   func(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) (aggregate.DashboardMetrics, error)
	presences func(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.AggregatedPresenceRecord, error)
	csv       func(ctx context.Context, date domain.Date, meal domain.Meal, messHallID int64) (string, error)
	users     func(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.UserMealDetail, error)
}

func (s *stubDashboard) Metrics(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) (aggregate.DashboardMetrics, error) {
	return s.metrics(ctx, rng, scope)
}
func (s *stubDashboard) Presences(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.AggregatedPresenceRecord, error) {
	return s.presences(ctx, rng, scope)
}
func (s *stubDashboard) CSV(ctx context.Context, date domain.Date, meal domain.Meal, messHallID int64) (string, error) {
	return s.csv(ctx, date, meal, messHallID)
}
func (s *stubDashboard) UserDetails(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.UserMealDetail, error) {
	return s.users(ctx, rng, scope)
}

type stubReports struct {
	run func(ctx context.Context, name string, params url.Values) (any, error)
}

func (s *stubReports) Run(ctx context.Context, name string, params url.Values) (any, error) {
	return s.run(ctx, name, params)
}

// stubCheckinStore backs checkin flows.
type stubCheckinStore struct {
	mu        sync.Mutex
	forecast  *bool
	confirmed []string
	err       error
}

func (s *stubCheckinStore) ForecastFor(context.Context, string, checkin.Filter) (*bool, error) {
	return s.forecast, nil
}

func (s *stubCheckinStore) Confirm(_ context.Context, userID string, _ checkin.Filter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, id := range s.confirmed {
		if id == userID {
			return true, nil
		}
	}
	s.confirmed = append(s.confirmed, userID)
	return false, nil
}

//
// Engine
//

// newTestEngine mounts every handler the way the router does, without the
// transport middleware that is tested elsewhere.
func newTestEngine(t *testing.T, d Deps) (*gin.Engine, *Handlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if d.Now == nil {
		d.Now = func() time.Time { return testNow }
	}
	h := New(d)

	var lookup middleware.IdempotencyLookup
	if m, ok := d.Idempotency.(*memIdem); ok {
		lookup = m.exists
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, lookup))

	r.GET("/mess-halls", h.ListMessHalls)
	r.GET("/mess-halls/:id", h.GetMessHall)
	r.GET("/units", h.ListUnits)

	r.GET("/forecasts", h.ListForecasts)
	r.PUT("/forecasts/pending", h.QueueForecastChanges)
	r.PUT("/forecasts/pending/mess-hall", h.SetDayMessHall)
	r.GET("/forecasts/pending", h.GetPendingForecasts)
	r.POST("/forecasts/flush", h.FlushForecasts)
	r.POST("/forecasts/batch", h.SaveForecastBatch)
	r.PUT("/me/default-mess-hall", h.SetDefaultMessHall)

	r.GET("/presences", h.ListPresences)
	r.POST("/presences", h.ConfirmPresence)
	r.DELETE("/presences/:id", h.DeletePresence)
	r.POST("/presences/others", h.AddOtherPresence)
	r.GET("/presences/others/count", h.CountOtherPresences)

	r.GET("/checkin", h.GetCheckin)
	r.PUT("/checkin/filter", h.SetCheckinFilter)
	r.POST("/checkin/scan", h.ScanCheckin)
	r.PUT("/checkin/decision", h.SetCheckinDecision)
	r.POST("/checkin/confirm", h.ConfirmCheckin)
	r.POST("/checkin/cancel", h.CancelCheckin)
	r.POST("/checkin/self", h.SelfCheckin)

	r.GET("/dashboard/metrics", h.DashboardMetrics)
	r.GET("/dashboard/presences", h.DashboardPresences)
	r.GET("/dashboard/presences/csv", h.DashboardPresencesCSV)
	r.GET("/dashboard/users", h.DashboardUsers)

	r.GET("/reports/:name", h.RunReport)
	return r, h
}

// do performs a request as user and returns the recorder.
func do(r http.Handler, method, target, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body=%s", v, err, w.Body.String())
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	if got := decode[ErrorResponse](t, w).Code; got != code {
		t.Fatalf("code=%q want %q", got, code)
	}
}

func ptr[T any](v T) *T { return &v }
