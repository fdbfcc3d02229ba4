package forecast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// recordingWriter counts writes per key and can fail or block selected keys.
type recordingWriter struct {
	mu     sync.Mutex
	writes map[Key][]Change
	fail   map[Key]error
	block  chan struct{} // when non-nil every write waits on it
	calls  atomic.Int64
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{writes: map[Key][]Change{}, fail: map[Key]error{}}
}

func (w *recordingWriter) Write(ctx context.Context, userID string, c Change) error {
	w.calls.Add(1)
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes[c.Key()] = append(w.writes[c.Key()], c)
	return w.fail[c.Key()]
}

func (w *recordingWriter) count(k Key) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes[k])
}

func ch(date domain.Date, meal domain.Meal, v bool, hall int64) Change {
	return Change{Date: date, Meal: meal, Value: v, MessHallID: hall}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestQueue_PutSameKeyKeepsOneLatest(t *testing.T) {
	q := NewQueue("u1", newRecordingWriter(), Options{SaveDelay: time.Hour})
	defer q.Close()

	if err := q.Put(ch("2025-04-01", domain.MealCafe, true, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := q.Put(ch("2025-04-01", domain.MealCafe, true, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := q.Put(ch("2025-04-01", domain.MealCafe, false, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	p := q.Pending()
	if len(p) != 1 || p[0].Value {
		t.Fatalf("expected a single pending change with latest value, got %+v", p)
	}
	if st := q.State("2025-04-01", domain.MealCafe); st != StatePending {
		t.Fatalf("state = %s; want pending", st)
	}
	if st := q.State("2025-04-01", domain.MealCeia); st != StateClean {
		t.Fatalf("state = %s; want clean", st)
	}
}

func TestQueue_RejectsInvalidChange(t *testing.T) {
	q := NewQueue("u1", newRecordingWriter(), Options{SaveDelay: time.Hour})
	defer q.Close()
	if err := q.Put(ch("2025-13-40", domain.MealCafe, true, 1)); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if err := q.Put(ch("2025-04-01", "brunch", true, 1)); !errors.Is(err, ErrInvalidMeal) {
		t.Fatalf("expected ErrInvalidMeal, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("invalid changes must not be queued")
	}
}

func TestQueue_DebounceCoalescesIntoOneWrite(t *testing.T) {
	w := newRecordingWriter()
	q := NewQueue("u1", w, Options{SaveDelay: 60 * time.Millisecond})
	defer q.Close()

	for i := 0; i < 10; i++ {
		if err := q.Put(ch("2025-04-01", domain.MealAlmoco, i%2 == 0, 1)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	waitFor(t, func() bool { return q.Len() == 0 && !q.Saving() })

	k := Key{Date: "2025-04-01", Meal: domain.MealAlmoco}
	if n := w.count(k); n != 1 {
		t.Fatalf("expected exactly one write for key, got %d", n)
	}
	if got := w.writes[k][0].Value; got != false {
		t.Fatalf("expected latest value false, got %v", got)
	}
	res := q.LastResult()
	if res == nil || res.Outcome != OutcomeAll || res.Message != "1 alteração salva com sucesso!" {
		t.Fatalf("unexpected last result: %+v", res)
	}
}

func TestQueue_FlushPartialFailureKeepsFailedPending(t *testing.T) {
	w := newRecordingWriter()
	bad := Key{Date: "2025-04-02", Meal: domain.MealJanta}
	w.fail[bad] = errors.New("boom")
	q := NewQueue("u1", w, Options{SaveDelay: time.Hour})
	defer q.Close()

	_ = q.PutAll([]Change{
		ch("2025-04-01", domain.MealCafe, true, 1),
		ch("2025-04-01", domain.MealAlmoco, false, 1),
		ch("2025-04-02", domain.MealJanta, true, 1),
	})
	res := q.Flush(context.Background())

	if res.Outcome != OutcomePartial || len(res.Saved) != 2 || len(res.Failed) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Message != "2 alterações salvas. 1 alteração falhou." {
		t.Fatalf("message = %q", res.Message)
	}
	if len(res.Applied) != 3 || len(res.Rollback()) != 1 || res.Rollback()[0].Key() != bad {
		t.Fatalf("rollback snapshot unexpected: %+v", res)
	}
	p := q.Pending()
	if len(p) != 1 || p[0].Key() != bad {
		t.Fatalf("only the failed change must remain pending, got %+v", p)
	}

	// manual retry after fixing the backend
	w.mu.Lock()
	delete(w.fail, bad)
	w.mu.Unlock()
	res = q.Flush(context.Background())
	if res.Outcome != OutcomeAll || q.Len() != 0 {
		t.Fatalf("retry should save everything: %+v", res)
	}
}

func TestQueue_FlushTotalFailure(t *testing.T) {
	w := newRecordingWriter()
	k := Key{Date: "2025-04-01", Meal: domain.MealCafe}
	w.fail[k] = errors.New("network down")
	q := NewQueue("u1", w, Options{SaveDelay: time.Hour})
	defer q.Close()

	_ = q.Put(ch("2025-04-01", domain.MealCafe, true, 1))
	res := q.Flush(context.Background())
	if res.Outcome != OutcomeFailed || res.Message != "A operação falhou: network down" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if q.Len() != 1 {
		t.Fatalf("failed change must stay pending")
	}
	if q.LastResult() == nil {
		t.Fatalf("failure result must not expire on its own")
	}
}

func TestQueue_ConcurrentFlushAwaitsInFlight(t *testing.T) {
	w := newRecordingWriter()
	w.block = make(chan struct{})
	q := NewQueue("u1", w, Options{SaveDelay: time.Hour})
	defer q.Close()

	_ = q.PutAll([]Change{
		ch("2025-04-01", domain.MealCafe, true, 1),
		ch("2025-04-01", domain.MealAlmoco, true, 1),
	})

	results := make(chan Result, 3)
	go func() { results <- q.Flush(context.Background()) }()
	waitFor(t, q.Saving)

	if st := q.State("2025-04-01", domain.MealCafe); st != StateSaving {
		t.Fatalf("state = %s; want saving", st)
	}
	// edit during flush: new value stays pending afterwards
	_ = q.Put(ch("2025-04-01", domain.MealCafe, false, 1))
	if st := q.State("2025-04-01", domain.MealCafe); st != StatePending {
		t.Fatalf("re-edited cell state = %s; want pending", st)
	}

	go func() { results <- q.Flush(context.Background()) }()
	go func() { results <- q.Flush(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(w.block)

	var first Result
	for i := 0; i < 3; i++ {
		r := <-results
		if i == 0 {
			first = r
		}
		if r.Outcome != OutcomeAll || len(r.Saved) != 2 || !r.FinishedAt.Equal(first.FinishedAt) {
			t.Fatalf("flush %d returned a different batch: %+v", i, r)
		}
	}
	if n := w.calls.Load(); n != 2 {
		t.Fatalf("expected 2 writes for one batch, got %d", n)
	}
	p := q.Pending()
	if len(p) != 1 || p[0].Value {
		t.Fatalf("edit made during flush must stay pending, got %+v", p)
	}
}

func TestQueue_SuccessResultExpires(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	q := NewQueue("u1", newRecordingWriter(), Options{SaveDelay: time.Hour, SuccessTTL: 3 * time.Second, Now: clock})
	defer q.Close()

	_ = q.Put(ch("2025-04-01", domain.MealCafe, true, 1))
	q.Flush(context.Background())
	if q.LastResult() == nil {
		t.Fatalf("result should be visible right after the flush")
	}
	mu.Lock()
	now = now.Add(4 * time.Second)
	mu.Unlock()
	if q.LastResult() != nil {
		t.Fatalf("success result should expire after SuccessTTL")
	}
}

func TestQueue_SetMessHallRequeuesDay(t *testing.T) {
	q := NewQueue("u1", newRecordingWriter(), Options{SaveDelay: time.Hour})
	defer q.Close()

	_ = q.Put(ch("2025-04-01", domain.MealJanta, true, 1))
	_ = q.Put(ch("2025-04-01", domain.MealCeia, false, 1))
	if err := q.SetMessHall("2025-04-01", 7, []domain.Meal{domain.MealCafe}); err != nil {
		t.Fatalf("SetMessHall: %v", err)
	}
	p := q.Pending()
	if len(p) != 3 {
		t.Fatalf("expected 3 pending changes, got %+v", p)
	}
	for _, c := range p {
		switch c.Meal {
		case domain.MealCafe, domain.MealJanta:
			if !c.Value || c.MessHallID != 7 {
				t.Fatalf("%s should move to hall 7: %+v", c.Meal, c)
			}
		case domain.MealCeia:
			if c.Value || c.MessHallID != 1 {
				t.Fatalf("negative change must be untouched: %+v", c)
			}
		}
	}
}

func TestQueue_CloseStopsTimer(t *testing.T) {
	w := newRecordingWriter()
	q := NewQueue("u1", w, Options{SaveDelay: 30 * time.Millisecond})
	_ = q.Put(ch("2025-04-01", domain.MealCafe, true, 1))
	q.Close()
	time.Sleep(80 * time.Millisecond)
	if w.calls.Load() != 0 {
		t.Fatalf("no write expected after Close")
	}
	if err := q.Put(ch("2025-04-01", domain.MealCafe, true, 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if res := q.Flush(context.Background()); res.Outcome != OutcomeNone {
		t.Fatalf("flush after close should do nothing, got %+v", res)
	}
}

func TestQueue_FlushEmpty(t *testing.T) {
	q := NewQueue("u1", newRecordingWriter(), Options{})
	defer q.Close()
	if res := q.Flush(context.Background()); res.Outcome != OutcomeNone || res.Message != "" {
		t.Fatalf("empty flush unexpected: %+v", res)
	}
}

func TestQueue_SetMessHallKeepsConcurrentNegative(t *testing.T) {
	for i := 0; i < 200; i++ {
		q := NewQueue("u1", newRecordingWriter(), Options{SaveDelay: time.Hour})
		_ = q.Put(ch("2025-04-01", domain.MealJanta, true, 1))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = q.SetMessHall("2025-04-01", 7, nil)
		}()
		go func() {
			defer wg.Done()
			_ = q.Put(ch("2025-04-01", domain.MealJanta, false, 1))
		}()
		wg.Wait()

		for _, c := range q.Pending() {
			if c.Meal == domain.MealJanta && c.Value {
				t.Fatalf("iteration %d: a later negative change was overwritten: %+v", i, c)
			}
		}
		q.Close()
	}
}

func TestQueue_CloseIfIdle(t *testing.T) {
	now := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	w := newRecordingWriter()
	q := NewQueue("u1", w, Options{SaveDelay: time.Hour, Now: func() time.Time { return now }})

	if q.closeIfIdle(now.Add(5*time.Minute), 10*time.Minute) {
		t.Fatalf("recently used queue must stay open")
	}
	_ = q.Put(ch("2025-04-01", domain.MealCafe, true, 1))
	if q.closeIfIdle(now.Add(time.Hour), 10*time.Minute) {
		t.Fatalf("queue with pending changes must stay open")
	}

	w.block = make(chan struct{})
	done := make(chan struct{})
	go func() { q.Flush(context.Background()); close(done) }()
	waitFor(t, q.Saving)
	if q.closeIfIdle(now.Add(time.Hour), 10*time.Minute) {
		t.Fatalf("queue with a batch in flight must stay open")
	}
	close(w.block)
	<-done

	if !q.closeIfIdle(now.Add(time.Hour), 10*time.Minute) {
		t.Fatalf("idle empty queue should close")
	}
	if err := q.Put(ch("2025-04-02", domain.MealCafe, true, 1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after idle close, got %v", err)
	}
}
