// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database and cache connections, the
// forecast save queue, the check-in flow, reporting limits, messaging,
// background jobs, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-sisub-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and configures the relational store.
type DBConfig struct {
	Driver     string // DB_DRIVER: sqlite|postgres
	Path       string // DB_PATH (sqlite file)
	URL        string // DATABASE_URL (postgres DSN)
	MaxRetries int    // DB_MAX_RETRIES
}

// RedisConfig configures the read-through cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ForecastConfig tunes the per-user pending-change queue.
type ForecastConfig struct {
	SaveDelay   time.Duration // debounce before an automatic flush
	SuccessTTL  time.Duration // how long a success summary stays visible
	DaysToShow  int
	SessionIdle time.Duration // idle queues are evicted after this
}

// CheckinConfig tunes the QR confirmation flow.
type CheckinConfig struct {
	Cooldown         time.Duration
	RecentCapacity   int
	AutoConfirmDelay time.Duration
	SessionIdle      time.Duration // idle flows are evicted after this
}

// ReportConfig bounds the reporting endpoints.
type ReportConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheControl string
}

// KafkaConfig configures the outbox publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	TopicPresence string
	PollInterval  time.Duration
	BatchSize     int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	ShutdownTimeout   time.Duration

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB    DBConfig
	Redis RedisConfig

	// Domain
	Forecast ForecastConfig
	Checkin  CheckinConfig
	Report   ReportConfig

	// Messaging / jobs
	Kafka           KafkaConfig
	CleanupSchedule string // cron spec

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DB: DBConfig{
			Driver:     strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:       getenv("DB_PATH", "sisub.db"),
			URL:        getenv("DATABASE_URL", ""),
			MaxRetries: getint("DB_MAX_RETRIES", 5),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			TTL:      getdur("CACHE_TTL", 5*time.Minute),
		},

		// Domain
		Forecast: ForecastConfig{
			SaveDelay:   getdur("FORECAST_SAVE_DELAY", 1500*time.Millisecond),
			SuccessTTL:  getdur("FORECAST_SUCCESS_TTL", 3*time.Second),
			DaysToShow:  getint("FORECAST_DAYS_TO_SHOW", 30),
			SessionIdle: getdur("FORECAST_SESSION_IDLE", 30*time.Minute),
		},
		Checkin: CheckinConfig{
			Cooldown:         getdur("CHECKIN_COOLDOWN", 800*time.Millisecond),
			RecentCapacity:   getint("CHECKIN_RECENT_CAPACITY", 300),
			AutoConfirmDelay: getdur("CHECKIN_AUTO_CONFIRM_DELAY", 3*time.Second),
			SessionIdle:      getdur("CHECKIN_SESSION_IDLE", 2*time.Hour),
		},
		Report: ReportConfig{
			DefaultLimit: getint("REPORT_DEFAULT_LIMIT", 1000),
			MaxLimit:     getint("REPORT_MAX_LIMIT", 10000),
			CacheControl: getenv("REPORT_CACHE_CONTROL", "public, max-age=300"),
		},

		// Messaging / jobs
		Kafka: KafkaConfig{
			Brokers:       splitCSV(getenv("KAFKA_BROKERS", "")),
			TopicPresence: getenv("KAFKA_TOPIC_PRESENCE", "sisub.presences"),
			PollInterval:  getdur("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:     getint("OUTBOX_BATCH_SIZE", 100),
		},
		CleanupSchedule: getenv("CLEANUP_SCHEDULE", "@every 1h"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-sisub-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pgx" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.Report.MaxLimit > 0 && cfg.Report.DefaultLimit > cfg.Report.MaxLimit {
		cfg.Report.DefaultLimit = cfg.Report.MaxLimit
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.DB.MaxRetries < 1 {
		return cfg, errors.New("DB_MAX_RETRIES must be >= 1")
	}
	if cfg.Redis.TTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Forecast.SaveDelay <= 0 || cfg.Forecast.SuccessTTL <= 0 || cfg.Forecast.SessionIdle <= 0 {
		return cfg, errors.New("FORECAST_* durations must be positive")
	}
	if cfg.Forecast.DaysToShow < 1 {
		return cfg, errors.New("FORECAST_DAYS_TO_SHOW must be >= 1")
	}
	if cfg.Checkin.Cooldown < 0 || cfg.Checkin.AutoConfirmDelay <= 0 || cfg.Checkin.SessionIdle <= 0 {
		return cfg, errors.New("CHECKIN_COOLDOWN must be >= 0, CHECKIN_AUTO_CONFIRM_DELAY and CHECKIN_SESSION_IDLE > 0")
	}
	if cfg.Checkin.RecentCapacity < 1 {
		return cfg, errors.New("CHECKIN_RECENT_CAPACITY must be >= 1")
	}
	if cfg.Report.DefaultLimit < 1 || cfg.Report.MaxLimit < 1 {
		return cfg, errors.New("REPORT_DEFAULT_LIMIT and REPORT_MAX_LIMIT must be >= 1")
	}
	if cfg.Kafka.PollInterval <= 0 || cfg.Kafka.BatchSize < 1 {
		return cfg, errors.New("OUTBOX_POLL_INTERVAL must be > 0 and OUTBOX_BATCH_SIZE >= 1")
	}
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.TopicPresence) == "" {
		return cfg, errors.New("KAFKA_TOPIC_PRESENCE must not be empty when KAFKA_BROKERS is set")
	}
	if strings.TrimSpace(cfg.CleanupSchedule) == "" {
		return cfg, errors.New("CLEANUP_SCHEDULE must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
