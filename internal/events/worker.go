package events

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/repo"
)

var published = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events handled by the publisher worker, by result (ok|error).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(published)
}

// Worker moves outbox rows to a Publisher.
type Worker struct {
	DB       *gorm.DB
	Pub      Publisher
	Interval time.Duration
	Batch    int
	Log      zerolog.Logger
}

// RunOnce publishes one batch and returns how many rows were published.
//
// Rows are published one at a time so a single bad row does not hold back the
// rest; failed rows record the error and stay pending.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	evs, err := repo.ListUnpublishedOutbox(ctx, w.DB, w.Batch)
	if err != nil {
		return 0, err
	}
	if len(evs) == 0 {
		return 0, nil
	}

	sent := make([]string, 0, len(evs))
	for _, ev := range evs {
		if err := w.Pub.Publish(ctx, ev); err != nil {
			published.WithLabelValues("error").Inc()
			w.Log.Error().Err(err).
				Str("outbox_id", ev.ID).
				Str("event_type", ev.EventType).
				Str("topic", ev.Topic).
				Msg("publish outbox event failed")
			if merr := repo.MarkOutboxFailed(ctx, w.DB, ev.ID, err); merr != nil {
				w.Log.Error().Err(merr).Str("outbox_id", ev.ID).Msg("mark outbox failed")
			}
			continue
		}
		published.WithLabelValues("ok").Inc()
		sent = append(sent, ev.ID)
	}

	if err := repo.MarkOutboxPublished(ctx, w.DB, sent, time.Now().UTC()); err != nil {
		return 0, err
	}
	if len(sent) > 0 {
		w.Log.Debug().Int("count", len(sent)).Msg("outbox events published")
	}
	return len(sent), nil
}

// Run polls every Interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Log.Info().Dur("poll_interval", interval).Msg("outbox worker started")
	for {
		select {
		case <-ctx.Done():
			w.Log.Info().Msg("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.Log.Error().Err(err).Msg("process outbox events failed")
			}
		}
	}
}
