// Command server runs the SISUB meal forecast and attendance API.
//
// Startup order: environment, logger, tracing, database, cache, background
// workers (outbox publisher and cleanup cron), the forecast and check-in
// registries, then the HTTP server. Shutdown runs in reverse so pending
// forecast changes are flushed before the database is released.
//
// @title          SISUB API
// @version        1.0
// @description    Meal forecasts, attendance check-in, dashboards and BI reports for military mess halls.
// @BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/tbourn/go-sisub-backend/docs"
	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/config"
	"github.com/tbourn/go-sisub-backend/internal/events"
	"github.com/tbourn/go-sisub-backend/internal/forecast"
	httpapi "github.com/tbourn/go-sisub-backend/internal/http"
	"github.com/tbourn/go-sisub-backend/internal/jobs"
	"github.com/tbourn/go-sisub-backend/internal/observability"
	"github.com/tbourn/go-sisub-backend/internal/repo"
	"github.com/tbourn/go-sisub-backend/internal/services"
	"github.com/tbourn/go-sisub-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev"),
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	shutdownTracer, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(version, "dev"))
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
		shutdownTracer = func(context.Context) error { return nil }
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info().Str("driver", sysutil.FirstNonEmpty(cfg.DB.Driver, "sqlite")).Msg("database ready")

	var store *cache.Service
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, 3)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, running without cache")
		} else {
			store = cache.New(rdb, cfg.Redis.TTL, logger)
			defer rdb.Close()
		}
	}

	// Background workers share one context and stop together.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	bg, bgCtx := errgroup.WithContext(bgCtx)

	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers)
		w := &events.Worker{
			DB:       db,
			Pub:      publisher,
			Interval: cfg.Kafka.PollInterval,
			Batch:    cfg.Kafka.BatchSize,
			Log:      logger.With().Str("component", "outbox").Logger(),
		}
		bg.Go(func() error { w.Run(bgCtx); return nil })
	} else {
		logger.Info().Msg("kafka brokers not configured, outbox events stay pending")
	}

	sched, err := jobs.New(db, cfg.CleanupSchedule, logger)
	if err != nil {
		bgCancel()
		return err
	}
	sched.Start()

	forecasts := forecast.NewRegistry(services.NewForecastStore(db, store), forecast.Options{
		SaveDelay:  cfg.Forecast.SaveDelay,
		SuccessTTL: cfg.Forecast.SuccessTTL,
		Logger:     logger.With().Str("component", "forecast").Logger(),
	}, cfg.Forecast.SessionIdle)
	if cfg.Forecast.SessionIdle > 0 {
		bg.Go(func() error { forecasts.RunEvictor(bgCtx, cfg.Forecast.SessionIdle/2); return nil })
	}

	presences := services.NewPresenceService(db, store, cfg.Kafka.TopicPresence, logger)
	checkins := checkin.NewRegistry(services.CheckinStore{Presences: presences}, checkin.Options{
		Cooldown:         cfg.Checkin.Cooldown,
		RecentCapacity:   cfg.Checkin.RecentCapacity,
		AutoConfirmDelay: cfg.Checkin.AutoConfirmDelay,
		Logger:           logger.With().Str("component", "checkin").Logger(),
	}, cfg.Checkin.SessionIdle)
	if cfg.Checkin.SessionIdle > 0 {
		bg.Go(func() error { checkins.RunEvictor(bgCtx, cfg.Checkin.SessionIdle/2); return nil })
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:        db,
		Cache:     store,
		Forecasts: forecasts,
		Checkins:  checkins,
		Logger:    logger,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-serveErr:
		logger.Error().Err(runErr).Msg("http server failed")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	forecasts.CloseAll(sctx)
	checkins.CloseAll()
	sched.Stop(sctx)

	bgCancel()
	_ = bg.Wait()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("kafka writer close")
		}
	}
	if err := shutdownTracer(sctx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("server stopped")
	return runErr
}
