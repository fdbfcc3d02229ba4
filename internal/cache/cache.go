// Package cache provides the read-through cache shared by the services.
//
// Values are stored in Redis as JSON under "<prefix><entity>:<key>". Misses
// are loaded once per key at a time (singleflight) and written back with a
// TTL. Writers invalidate either exact keys or a whole entity.
//
// A Service with a nil Redis client passes every lookup through to the
// loader, so the application runs unchanged without Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Entity names used as invalidation scopes.
const (
	EntityMessHalls = "mess_halls"
	EntityUnits     = "units"
	EntityPeople    = "people"
	EntityDashboard = "dashboard"
)

// DefaultPrefix namespaces every key written by this service.
const DefaultPrefix = "sisub:"

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by entity and result (hit|miss|error|bypass).",
	},
	[]string{"entity", "result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// Service is a Redis-backed read-through cache.
type Service struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	sf     singleflight.Group
	log    zerolog.Logger
}

// New returns a cache over rdb. rdb may be nil.
func New(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		rdb:    rdb,
		ttl:    ttl,
		prefix: DefaultPrefix,
		log:    logger.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether a Redis client is configured.
func (s *Service) Enabled() bool { return s != nil && s.rdb != nil }

// Key returns the full Redis key for entity and key.
func (s *Service) Key(entity, key string) string {
	return s.prefix + entity + ":" + key
}

// GetOrLoad returns the cached value for (entity, key) or calls load, caches
// its result and returns it. Redis failures are logged and fall back to load.
func GetOrLoad[T any](ctx context.Context, s *Service, entity, key string, load func(context.Context) (T, error)) (T, error) {
	if !s.Enabled() {
		lookups.WithLabelValues(entity, "bypass").Inc()
		return load(ctx)
	}
	full := s.Key(entity, key)

	raw, err := s.rdb.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			lookups.WithLabelValues(entity, "hit").Inc()
			return v, nil
		}
		s.log.Warn().Str("key", full).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		lookups.WithLabelValues(entity, "error").Inc()
		s.log.Warn().Err(err).Str("key", full).Msg("cache get failed")
	}
	lookups.WithLabelValues(entity, "miss").Inc()

	v, err, _ := s.sf.Do(full, func() (any, error) {
		val, lerr := load(ctx)
		if lerr != nil {
			return val, lerr
		}
		if b, merr := json.Marshal(val); merr == nil {
			if serr := s.rdb.Set(ctx, full, b, s.ttl).Err(); serr != nil {
				s.log.Warn().Err(serr).Str("key", full).Msg("cache set failed")
			}
		}
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected type %T for %s", v, full)
	}
	return out, nil
}

// Invalidate deletes the exact keys of entity.
func (s *Service) Invalidate(ctx context.Context, entity string, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.Key(entity, k)
	}
	return s.rdb.Del(ctx, full...).Err()
}

// InvalidateEntity deletes every key of entity using SCAN.
func (s *Service) InvalidateEntity(ctx context.Context, entity string) error {
	if !s.Enabled() {
		return nil
	}
	match := s.Key(entity, "*")
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks the Redis connection; it is a no-op when disabled.
func (s *Service) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Ping(ctx).Err()
}
