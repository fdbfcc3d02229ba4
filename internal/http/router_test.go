package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/config"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/http/middleware"
	"github.com/tbourn/go-sisub-backend/internal/repo"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Create(&domain.Unit{ID: 1, Code: "BASP", DisplayName: "Base Aérea"}).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	if err := db.Create(&domain.MessHall{ID: 1, UnitID: 1, Code: "RU1", DisplayName: "Rancho Central"}).Error; err != nil {
		t.Fatalf("seed mess hall: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      10,
		IdempotencyTTL: time.Hour,
		Forecast:       config.ForecastConfig{DaysToShow: 7},
		Report:         config.ReportConfig{DefaultLimit: 100, MaxLimit: 1000, CacheControl: "public, max-age=300"},
		Kafka:          config.KafkaConfig{TopicPresence: "sisub.presences"},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newRouter wires a full engine over db.
func newRouter(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	presences := services.NewPresenceService(db, nil, cfg.Kafka.TopicPresence, zerolog.Nop())
	fr := forecast.NewRegistry(services.NewForecastStore(db, nil), forecast.Options{SaveDelay: time.Hour}, 0)
	cr := checkin.NewRegistry(services.CheckinStore{Presences: presences}, checkin.Options{}, 0)
	t.Cleanup(func() {
		fr.CloseAll(context.Background())
		cr.CloseAll()
	})

	r := gin.New()
	RegisterRoutes(r, Deps{DB: db, Forecasts: fr, Checkins: cr, Logger: zerolog.Nop()}, cfg)
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("sisub_http_requests_total")) {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = serve(r, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// swagger is off by default
	w = serve(r, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://sisub.example"}}
	r := newRouter(t, newTestDB(t), cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://sisub.example")
	w := serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://sisub.example" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected ACAO %q", got)
	}
}

func TestReadiness(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, testConfig())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d body=%s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["database"] != "ok" || body["cache"] != "disabled" {
		t.Fatalf("body=%v", body)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
	w = serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready on closed db = %d", w.Code)
	}
}

func TestAPI_ReferenceData_Gzip(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mess-halls?unit_id=1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, headers=%v", w.Header())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"code":"RU1"`)) {
		t.Fatalf("body=%s", raw)
	}
}

func TestAPI_ConfirmPresence_IdempotentReplay(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, testConfig())

	body := `{"user_id":"0b6f3c9e-2a51-4c1e-9d2a-7f6b1a2c3d4e","date":"2025-03-10","meal":"almoco","mess_hall_id":1}`
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/presences", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "fiscal-1")
		req.Header.Set(middleware.HeaderIdempotencyKey, "scan-42")
		return serve(r, req)
	}

	w := post()
	if w.Code != http.StatusCreated {
		t.Fatalf("first POST = %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatalf("first POST must not be a replay")
	}

	w = post()
	if w.Code != http.StatusCreated {
		t.Fatalf("replay POST = %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay header")
	}

	var n int64
	db.Model(&domain.Presence{}).Count(&n)
	if n != 1 {
		t.Fatalf("presences=%d", n)
	}
	var outbox int64
	db.Model(&domain.OutboxEvent{}).Count(&outbox)
	if outbox != 1 {
		t.Fatalf("outbox events=%d", outbox)
	}

	// bad key is rejected before the handler
	req := httptest.NewRequest(http.MethodPost, "/api/v1/presences", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, "has spaces")
	if w := serve(r, req); w.Code != http.StatusBadRequest {
		t.Fatalf("bad key = %d", w.Code)
	}
}

func TestAPI_ForecastQueueRoundTrip(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, testConfig())

	put := httptest.NewRequest(http.MethodPut, "/api/v1/forecasts/pending",
		bytes.NewBufferString(`{"changes":[{"date":"2025-03-11","meal":"janta","value":true,"mess_hall_id":1}]}`))
	put.Header.Set("Content-Type", "application/json")
	put.Header.Set("X-User-ID", "u-1")
	if w := serve(r, put); w.Code != http.StatusAccepted {
		t.Fatalf("PUT pending = %d body=%s", w.Code, w.Body.String())
	}

	flush := httptest.NewRequest(http.MethodPost, "/api/v1/forecasts/flush", nil)
	flush.Header.Set("X-User-ID", "u-1")
	w := serve(r, flush)
	if w.Code != http.StatusOK {
		t.Fatalf("flush = %d", w.Code)
	}
	var res forecast.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Outcome != forecast.OutcomeAll {
		t.Fatalf("result=%+v", res)
	}

	var rows []domain.Forecast
	db.Where("user_id = ?", "u-1").Find(&rows)
	if len(rows) != 1 || rows[0].Meal != domain.MealJanta || !rows[0].WillEat || rows[0].MessHallID != 1 {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestAPI_ReportCacheControl(t *testing.T) {
	r := newRouter(t, newTestDB(t), testConfig())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/reports/presences?date=2025-03-10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "public, max-age=300" {
		t.Fatalf("cache-control=%q", w.Header().Get("Cache-Control"))
	}
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/reports/nope", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("unknown report = %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
