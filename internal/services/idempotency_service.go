// Package services – IdempotencyService
//
// IdempotencyService records completed unsafe requests keyed by
// (user, scope, Idempotency-Key) so retries can be answered with the stored
// result instead of repeating the write. The scope is the HTTP method and
// route pattern.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// DefaultIdempotencyTTL applies when the configured TTL is not positive.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyService stores and looks up idempotency records.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// NewIdempotencyService constructs an IdempotencyService.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{DB: db, TTL: ttl}
}

// Lookup returns the live record for the key, or nil when none exists.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, scope, key string) (*domain.Idempotency, error) {
	tr := otel.Tracer("services/IdempotencyService")
	ctx, span := tr.Start(ctx, "Lookup", trace.WithAttributes(attribute.String("scope", scope)))
	defer span.End()

	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// Exists has the shape of middleware.IdempotencyLookup.
func (s *IdempotencyService) Exists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Remember stores the outcome of a completed request. A concurrent request
// that already stored the same key wins and is not an error.
func (s *IdempotencyService) Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
