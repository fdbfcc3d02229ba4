// Package handlers exposes the SISUB REST API over Gin.
//
// Handlers are transport-thin: they bind and validate input, call the
// application services through the interfaces below, and translate results
// into HTTP responses (including ETag and idempotent replays). Business rules
// live in internal/services, internal/forecast and internal/checkin.
package handlers

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// MessHallService serves reference data.
type MessHallService interface {
	List(ctx context.Context, unitID int64) ([]domain.MessHall, error)
	Get(ctx context.Context, id int64) (*domain.MessHall, error)
	Search(ctx context.Context, unitID int64, q string) ([]domain.MessHall, error)
	Units(ctx context.Context) ([]domain.Unit, error)
}

// ForecastService reads forecasts and stores user preferences.
type ForecastService interface {
	Days(now time.Time) []domain.Date
	List(ctx context.Context, userID string, start, end domain.Date) ([]domain.Forecast, error)
	Selections(ctx context.Context, userID string, days []domain.Date, pending []forecast.Change) (services.Selections, error)
	SetDefaultMessHall(ctx context.Context, userID, email string, messHallID int64) error
}

// ForecastQueues hands out the per-user pending-change queues.
type ForecastQueues interface {
	Get(userID string) *forecast.Queue
	Peek(userID string) (*forecast.Queue, bool)
}

// PresenceService confirms and lists presences.
type PresenceService interface {
	Get(ctx context.Context, id string) (*domain.Presence, error)
	Confirm(ctx context.Context, userID string, slot services.Slot) (services.ConfirmResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, slot services.Slot) ([]services.PresenceView, error)
	Stats(ctx context.Context, slot services.Slot) (int64, *time.Time, error)
	AddOther(ctx context.Context, adminID string, slot services.Slot) (*domain.OtherPresence, error)
	CountOthers(ctx context.Context, slot services.Slot) (int64, error)
	SelfCheckin(ctx context.Context, userID, code string, willEnter bool, now time.Time) (services.SelfCheckinResult, error)
}

// IdempotencyStore remembers completed unsafe requests.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (*domain.Idempotency, error)
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
}

// CheckinFlows hands out the per-fiscal QR flows.
type CheckinFlows interface {
	Get(fiscalID string, messHallID int64) *checkin.Flow
	Now() time.Time
}

// DashboardService computes the admin dashboard.
type DashboardService interface {
	Metrics(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) (aggregate.DashboardMetrics, error)
	Presences(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.AggregatedPresenceRecord, error)
	CSV(ctx context.Context, date domain.Date, meal domain.Meal, messHallID int64) (string, error)
	UserDetails(ctx context.Context, rng aggregate.DateRange, scope services.DashboardScope) ([]aggregate.UserMealDetail, error)
}

// ReportService runs the BI reports.
type ReportService interface {
	Run(ctx context.Context, name string, params url.Values) (any, error)
}

var (
	_ MessHallService  = (*services.MessHallService)(nil)
	_ ForecastService  = (*services.ForecastService)(nil)
	_ ForecastQueues   = (*forecast.Registry)(nil)
	_ PresenceService  = (*services.PresenceService)(nil)
	_ IdempotencyStore = (*services.IdempotencyService)(nil)
	_ CheckinFlows     = (*checkin.Registry)(nil)
	_ DashboardService = (*services.DashboardService)(nil)
	_ ReportService    = (*services.ReportService)(nil)
)

//
// Handler wiring
//

// Deps carries everything the handlers need. Writer saves synchronous
// batches that bypass the queues.
type Deps struct {
	MessHalls   MessHallService
	Forecasts   ForecastService
	Queues      ForecastQueues
	Writer      forecast.Writer
	Presences   PresenceService
	Idempotency IdempotencyStore
	Checkins    CheckinFlows
	Dashboard   DashboardService
	Reports     ReportService

	// ReportCacheControl is sent on report responses.
	ReportCacheControl string
	// DashboardDays is the default dashboard window ending today.
	DashboardDays int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handlers groups every HTTP endpoint.
type Handlers struct {
	halls     MessHallService
	forecasts ForecastService
	queues    ForecastQueues
	writer    forecast.Writer
	presences PresenceService
	idem      IdempotencyStore
	checkins  CheckinFlows
	dashboard DashboardService
	reports   ReportService

	reportCacheControl string
	dashboardDays      int
	now                func() time.Time
}

// New constructs Handlers and registers the custom binding validators.
func New(d Deps) *Handlers {
	mustRegisterValidators()
	h := &Handlers{
		halls:              d.MessHalls,
		forecasts:          d.Forecasts,
		queues:             d.Queues,
		writer:             d.Writer,
		presences:          d.Presences,
		idem:               d.Idempotency,
		checkins:           d.Checkins,
		dashboard:          d.Dashboard,
		reports:            d.Reports,
		reportCacheControl: d.ReportCacheControl,
		dashboardDays:      d.DashboardDays,
		now:                d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.dashboardDays <= 0 {
		h.dashboardDays = 30
	}
	return h
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header and finally
// to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}
