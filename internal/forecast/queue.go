package forecast

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// CellState is the save state of one forecast cell.
type CellState string

const (
	StateClean   CellState = "clean"
	StatePending CellState = "pending"
	StateSaving  CellState = "saving"
)

// Options tunes a Queue. Zero values take the defaults below.
type Options struct {
	SaveDelay    time.Duration // debounce; default 1500ms
	SuccessTTL   time.Duration // success results expire after this; default 3s
	WriteTimeout time.Duration // per automatic flush; default 15s
	Concurrency  int           // parallel writes per batch; default 8
	Now          func() time.Time
	Logger       zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.SaveDelay <= 0 {
		o.SaveDelay = 1500 * time.Millisecond
	}
	if o.SuccessTTL <= 0 {
		o.SuccessTTL = 3 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 15 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type flushCall struct {
	done     chan struct{}
	snapshot map[Key]Change
	res      Result
}

// Queue holds one user's pending changes. It is safe for concurrent use.
type Queue struct {
	userID string
	w      Writer
	opts   Options
	log    zerolog.Logger

	mu           sync.Mutex
	pending      map[Key]Change
	timer        *time.Timer
	inflight     *flushCall
	editedInFlux bool
	last         *Result
	lastEdit     time.Time
	closed       bool
}

// NewQueue returns an empty queue for userID writing through w.
func NewQueue(userID string, w Writer, opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		userID:   userID,
		w:        w,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "forecast_queue").Str("user_id", userID).Logger(),
		pending:  map[Key]Change{},
		lastEdit: opts.Now(),
	}
}

// UserID returns the owner of the queue.
func (q *Queue) UserID() string { return q.userID }

// Put records c, replacing any pending change for the same cell, and restarts
// the debounce timer.
func (q *Queue) Put(c Change) error {
	return q.PutAll([]Change{c})
}

// PutAll records several changes in order and restarts the timer once.
func (q *Queue) PutAll(cs []Change) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.putAllLocked(cs)
}

// putAllLocked validates and records cs. Caller holds q.mu.
func (q *Queue) putAllLocked(cs []Change) error {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if q.closed {
		return ErrClosed
	}
	for _, c := range cs {
		q.pending[c.Key()] = c
	}
	q.lastEdit = q.opts.Now()
	if q.inflight != nil {
		q.editedInFlux = true
	}
	q.armLocked()
	return nil
}

// SetMessHall moves a day to another mess hall: every meal in meals and
// every pending positive change for date is re-queued with messHallID. The
// pending set is read and rewritten in one critical section.
func (q *Queue) SetMessHall(date domain.Date, messHallID int64, meals []domain.Meal) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	set := map[domain.Meal]bool{}
	for _, m := range meals {
		set[m] = true
	}
	for k, c := range q.pending {
		if k.Date == date && c.Value {
			set[k.Meal] = true
		}
	}

	cs := make([]Change, 0, len(set))
	for _, m := range domain.Meals {
		if set[m] {
			cs = append(cs, Change{Date: date, Meal: m, Value: true, MessHallID: messHallID})
		}
	}
	if len(cs) == 0 {
		return nil
	}
	return q.putAllLocked(cs)
}

// armLocked (re)starts the debounce timer. Caller holds q.mu.
func (q *Queue) armLocked() {
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.opts.SaveDelay, q.autoFlush)
}

func (q *Queue) autoFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.WriteTimeout)
	defer cancel()
	res := q.Flush(ctx)
	if res.Outcome != OutcomeNone {
		q.log.Debug().Str("outcome", string(res.Outcome)).Int("saved", len(res.Saved)).Int("failed", len(res.Failed)).Msg("auto flush")
	}
}

// Flush saves every pending change now. When a batch is already in flight
// it waits for that batch and returns its result instead of starting another.
func (q *Queue) Flush(ctx context.Context) Result {
	q.mu.Lock()
	if call := q.inflight; call != nil {
		q.mu.Unlock()
		select {
		case <-call.done:
			return call.res
		case <-ctx.Done():
			return Result{Outcome: OutcomeNone, FinishedAt: q.opts.Now()}
		}
	}
	if q.closed || len(q.pending) == 0 {
		q.mu.Unlock()
		return Result{Outcome: OutcomeNone, FinishedAt: q.opts.Now()}
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	call := &flushCall{done: make(chan struct{}), snapshot: make(map[Key]Change, len(q.pending))}
	for k, c := range q.pending {
		call.snapshot[k] = c
	}
	q.inflight = call
	q.editedInFlux = false
	q.mu.Unlock()

	batch := sortedChanges(call.snapshot)
	errs := make([]error, len(batch))
	g := new(errgroup.Group)
	g.SetLimit(q.opts.Concurrency)
	for i, c := range batch {
		g.Go(func() error {
			errs[i] = q.w.Write(ctx, q.userID, c)
			return nil
		})
	}
	_ = g.Wait()

	var saved, failed []Change
	var msgs []string
	for i, c := range batch {
		if errs[i] != nil {
			failed = append(failed, c)
			msgs = append(msgs, errs[i].Error())
			changesTotal.WithLabelValues("error").Inc()
			continue
		}
		saved = append(saved, c)
		changesTotal.WithLabelValues("ok").Inc()
	}
	res := newResult(batch, saved, failed, msgs, q.opts.Now())
	flushTotal.WithLabelValues(string(res.Outcome)).Inc()
	if len(failed) > 0 {
		q.log.Warn().Strs("errors", msgs).Int("failed", len(failed)).Msg("forecast flush had failures")
	}

	q.mu.Lock()
	for _, c := range saved {
		if cur, ok := q.pending[c.Key()]; ok && cur == c {
			delete(q.pending, c.Key())
		}
	}
	q.last = &res
	q.inflight = nil
	if q.editedInFlux && !q.closed && len(q.pending) > 0 {
		q.armLocked()
	}
	call.res = res
	q.mu.Unlock()
	close(call.done)
	return res
}

// Pending returns the pending changes ordered by date then meal.
func (q *Queue) Pending() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()
	return sortedChanges(q.pending)
}

// Len returns the number of pending changes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Saving reports whether a batch is in flight.
func (q *Queue) Saving() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight != nil
}

// State returns the save state of a cell. A cell edited again while its
// previous value is being written is pending, not saving.
func (q *Queue) State(date domain.Date, meal domain.Meal) CellState {
	k := Key{Date: date, Meal: meal}
	q.mu.Lock()
	defer q.mu.Unlock()
	cur, ok := q.pending[k]
	if !ok {
		return StateClean
	}
	if q.inflight != nil {
		if snap, in := q.inflight.snapshot[k]; in && snap == cur {
			return StateSaving
		}
	}
	return StatePending
}

// LastResult returns the latest flush result. Fully successful results expire
// after SuccessTTL; failures stay until DismissResult or the next flush.
func (q *Queue) LastResult() *Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.last == nil {
		return nil
	}
	if q.last.Outcome == OutcomeAll && q.opts.Now().Sub(q.last.FinishedAt) > q.opts.SuccessTTL {
		q.last = nil
		return nil
	}
	r := *q.last
	return &r
}

// DismissResult clears the latest result.
func (q *Queue) DismissResult() {
	q.mu.Lock()
	q.last = nil
	q.mu.Unlock()
}

// Close stops the debounce timer. Pending changes are kept but no flush will
// start afterwards; an in-flight batch is allowed to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// closeIfIdle closes the queue when nothing is pending, no batch is in
// flight and the last edit is at least idle before now. The checks and the
// close share one critical section so a concurrent Put either lands first
// and keeps the queue open or fails with ErrClosed.
func (q *Queue) closeIfIdle(now time.Time, idle time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return true
	}
	if len(q.pending) > 0 || q.inflight != nil || now.Sub(q.lastEdit) < idle {
		return false
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	return true
}

func sortedChanges(m map[Key]Change) []Change {
	out := make([]Change, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Meal.Order() < out[j].Meal.Order()
	})
	return out
}
