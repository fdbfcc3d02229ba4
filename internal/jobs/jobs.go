// Package jobs runs periodic maintenance on a cron schedule: expired
// idempotency records and long-published outbox rows are purged.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// OutboxRetention is how long published outbox rows are kept.
const OutboxRetention = 7 * 24 * time.Hour

// jobTimeout bounds a single cleanup run.
const jobTimeout = time.Minute

// Scheduler owns the cron runner.
type Scheduler struct {
	c   *cron.Cron
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// New registers the cleanup job on spec (standard cron syntax or a
// descriptor such as "@every 1h"). Overlapping runs are skipped.
func New(db *gorm.DB, spec string, logger zerolog.Logger) (*Scheduler, error) {
	l := logger.With().Str("component", "jobs").Logger()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{l})))
	s := &Scheduler{c: c, db: db, log: l, now: time.Now}
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.Cleanup(ctx)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.c.Start() }

// Stop prevents new runs and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("cleanup still running at shutdown")
	}
}

// Cleanup runs every purge once. Failures are logged.
func (s *Scheduler) Cleanup(ctx context.Context) {
	now := s.now().UTC()
	if n, err := repo.PurgeExpiredIdempotency(ctx, s.db, now); err != nil {
		s.log.Error().Err(err).Msg("purge idempotency failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("expired idempotency records purged")
	}
	if n, err := repo.PurgePublishedOutbox(ctx, s.db, now.Add(-OutboxRetention)); err != nil {
		s.log.Error().Err(err).Msg("purge outbox failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("published outbox events purged")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
