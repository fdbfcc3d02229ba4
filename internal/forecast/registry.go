package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns one Queue per user, created on first use and evicted after
// a period without edits.
type Registry struct {
	w    Writer
	opts Options
	idle time.Duration
	log  zerolog.Logger

	mu     sync.Mutex
	queues map[string]*Queue
	closed bool
}

// NewRegistry builds a registry whose queues write through w. idle <= 0
// disables eviction.
func NewRegistry(w Writer, opts Options, idle time.Duration) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		w:      w,
		opts:   opts,
		idle:   idle,
		log:    opts.Logger.With().Str("component", "forecast_registry").Logger(),
		queues: map[string]*Queue{},
	}
}

// Get returns the queue for userID, creating it when needed. It returns nil
// after CloseAll.
func (r *Registry) Get(userID string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	q, ok := r.queues[userID]
	if !ok {
		q = NewQueue(userID, r.w, r.opts)
		r.queues[userID] = q
		queuesActive.Inc()
	}
	return q
}

// Peek returns the queue for userID without creating one.
func (r *Registry) Peek(userID string) (*Queue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[userID]
	return q, ok
}

// Len returns the number of live queues.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Evict closes and drops queues idle for longer than the idle window that
// have nothing pending and no batch in flight. It returns how many were
// removed.
func (r *Registry) Evict() int {
	if r.idle <= 0 {
		return 0
	}
	now := r.opts.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, q := range r.queues {
		if !q.closeIfIdle(now, r.idle) {
			continue
		}
		delete(r.queues, id)
		queuesActive.Dec()
		n++
	}
	if n > 0 {
		r.log.Debug().Int("evicted", n).Msg("evicted idle forecast queues")
	}
	return n
}

// RunEvictor calls Evict every interval until ctx is done.
func (r *Registry) RunEvictor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Evict()
		}
	}
}

// CloseAll flushes every queue once with ctx, then closes them. Later Get
// calls return nil.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	qs := make([]*Queue, 0, len(r.queues))
	for _, q := range r.queues {
		qs = append(qs, q)
	}
	r.queues = map[string]*Queue{}
	r.mu.Unlock()

	for _, q := range qs {
		if q.Len() > 0 {
			res := q.Flush(ctx)
			r.log.Info().Str("user_id", q.UserID()).Str("outcome", string(res.Outcome)).Msg("flushed forecast queue on shutdown")
		}
		q.Close()
		queuesActive.Dec()
	}
}
