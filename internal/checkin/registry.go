package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type entry struct {
	flow     *Flow
	lastUsed time.Time
}

// Registry keeps one Flow per fiscal. Flows unused for longer than the idle
// window are evicted unless a dialog is open or a confirmation is running.
type Registry struct {
	store Store
	opts  Options
	idle  time.Duration
	log   zerolog.Logger

	mu     sync.Mutex
	flows  map[string]*entry
	closed bool
}

// NewRegistry builds a registry of flows over store. idle <= 0 disables
// eviction.
func NewRegistry(store Store, opts Options, idle time.Duration) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		store: store,
		opts:  opts,
		idle:  idle,
		log:   opts.Logger.With().Str("component", "checkin_registry").Logger(),
		flows: map[string]*entry{},
	}
}

// Get returns the fiscal's flow, creating one with the default filter for
// messHallID when needed. It returns nil after CloseAll.
func (r *Registry) Get(fiscalID string, messHallID int64) *Flow {
	now := r.opts.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	e, ok := r.flows[fiscalID]
	if !ok {
		e = &entry{flow: NewFlow(r.store, FilterFor(now, messHallID), r.opts)}
		r.flows[fiscalID] = e
	}
	e.lastUsed = now
	return e.flow
}

// Peek returns the fiscal's flow without creating it.
func (r *Registry) Peek(fiscalID string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[fiscalID]
	if !ok {
		return nil, false
	}
	return e.flow, true
}

// Len returns the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Now returns the registry clock.
func (r *Registry) Now() time.Time { return r.opts.Now() }

// Evict closes and drops flows not fetched for longer than the idle window.
// Flows with an open dialog or a confirmation in progress are kept. It
// returns how many were removed.
func (r *Registry) Evict() int {
	if r.idle <= 0 {
		return 0
	}
	now := r.opts.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.flows {
		if now.Sub(e.lastUsed) < r.idle || !e.flow.closeIfQuiet() {
			continue
		}
		delete(r.flows, id)
		n++
	}
	if n > 0 {
		r.log.Debug().Int("evicted", n).Msg("evicted idle check-in flows")
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

// CloseAll closes every flow. Later Get calls return nil.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, e := range r.flows {
		e.flow.Close()
		delete(r.flows, id)
	}
}
