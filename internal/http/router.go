// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, rate limiting and compression.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing (CPF, e-mail, phone)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and security headers
//  10. gzip (CSV exports and report payloads)
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/config"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	"github.com/tbourn/go-sisub-backend/internal/http/handlers"
	"github.com/tbourn/go-sisub-backend/internal/http/middleware"
	"github.com/tbourn/go-sisub-backend/internal/services"
)

// Deps are the long-lived components owned by main. Cache may be nil.
type Deps struct {
	DB        *gorm.DB
	Cache     *cache.Service
	Forecasts *forecast.Registry
	Checkins  *checkin.Registry
	Logger    zerolog.Logger
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// Dependency injection: services ← repo/db/cache
	halls := services.NewMessHallService(d.DB, d.Cache)
	idem := services.NewIdempotencyService(d.DB, cfg.IdempotencyTTL)
	h := handlers.New(handlers.Deps{
		MessHalls:          halls,
		Forecasts:          services.NewForecastService(d.DB, d.Cache, cfg.Forecast.DaysToShow),
		Queues:             d.Forecasts,
		Writer:             services.NewForecastStore(d.DB, d.Cache),
		Presences:          services.NewPresenceService(d.DB, d.Cache, cfg.Kafka.TopicPresence, d.Logger),
		Idempotency:        idem,
		Checkins:           d.Checkins,
		Dashboard:          services.NewDashboardService(d.DB, d.Cache, halls),
		Reports:            services.NewReportService(d.DB, cfg.Report.DefaultLimit, cfg.Report.MaxLimit),
		ReportCacheControl: cfg.Report.CacheControl,
	})

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Exists))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 10) Compression; /metrics is scraped uncompressed
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness and readiness
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readiness(d.DB, d.Cache))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Reference data
		api.GET("/mess-halls", h.ListMessHalls)
		api.GET("/mess-halls/:id", h.GetMessHall)
		api.GET("/units", h.ListUnits)

		// Forecasts
		api.GET("/forecasts", h.ListForecasts)
		api.GET("/forecasts/pending", h.GetPendingForecasts)
		api.PUT("/forecasts/pending", h.QueueForecastChanges)
		api.PUT("/forecasts/pending/mess-hall", h.SetDayMessHall)
		api.POST("/forecasts/flush", h.FlushForecasts)
		api.POST("/forecasts/batch", h.SaveForecastBatch)
		api.PUT("/me/default-mess-hall", h.SetDefaultMessHall)

		// Presences
		api.GET("/presences", h.ListPresences)
		api.POST("/presences", h.ConfirmPresence)
		api.DELETE("/presences/:id", h.DeletePresence)
		api.POST("/presences/others", h.AddOtherPresence)
		api.GET("/presences/others/count", h.CountOtherPresences)

		// Fiscal check-in
		api.GET("/checkin", h.GetCheckin)
		api.PUT("/checkin/filter", h.SetCheckinFilter)
		api.POST("/checkin/scan", h.ScanCheckin)
		api.PUT("/checkin/decision", h.SetCheckinDecision)
		api.POST("/checkin/confirm", h.ConfirmCheckin)
		api.POST("/checkin/cancel", h.CancelCheckin)
		api.POST("/checkin/self", h.SelfCheckin)

		// Dashboard
		api.GET("/dashboard/metrics", h.DashboardMetrics)
		api.GET("/dashboard/presences", h.DashboardPresences)
		api.GET("/dashboard/presences/csv", h.DashboardPresencesCSV)
		api.GET("/dashboard/users", h.DashboardUsers)

		// BI reports
		api.GET("/reports/:name", h.RunReport)
	}
}

// readiness answers 200 when the database (and Redis, if configured)
// respond within two seconds, 503 otherwise.
func readiness(db *gorm.DB, c *cache.Service) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "cache": "disabled"}
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(pctx) != nil {
			status["database"] = "down"
			code = http.StatusServiceUnavailable
		}
		if c.Enabled() {
			status["cache"] = "ok"
			if err := c.Ping(pctx); err != nil {
				status["cache"] = "down"
				code = http.StatusServiceUnavailable
			}
		}
		ctx.JSON(code, status)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
