// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver, used in development and tests), Postgres (pgx,
// used in production), SQL tracing and schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-sisub-backend/internal/config"
	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// retryDelay is the pause between Postgres connection attempts.
var retryDelay = 5 * time.Second

// Open dispatches on cfg.Driver and returns a ready handle with tracing
// installed. It does not migrate.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = OpenPostgres(cfg.URL, cfg.MaxRetries)
	default:
		db, err = OpenSQLite(cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := Instrument(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects with pgx through gorm, retrying up to maxRetries times
// until a ping succeeds.
func OpenPostgres(dsn string, maxRetries int) (*gorm.DB, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		db, err := connectPostgres(dsn)
		if err == nil {
			log.Info().Int("attempt", i).Msg("postgres connected")
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Int("max", maxRetries).Msg("postgres connect failed")
		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, lastErr)
}

func connectPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Instrument installs the OpenTelemetry GORM plugin so every statement is a span.
func Instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates every table used by the application.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Unit{},
		&domain.MessHall{},
		&domain.UserData{},
		&domain.MilitaryData{},
		&domain.Forecast{},
		&domain.Presence{},
		&domain.OtherPresence{},
		&domain.Idempotency{},
		&domain.OutboxEvent{},
	)
}
