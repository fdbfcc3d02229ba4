package checkin

import (
	"sync"
	"time"
)

// ScanGuard suppresses repeated decodes. A scan is admitted only when the
// cooldown since the last admitted scan has elapsed and the id is not in the
// recently scanned set. The set holds at most capacity ids, evicting the
// oldest first.
type ScanGuard struct {
	cooldown time.Duration
	capacity int
	now      func() time.Time

	mu     sync.Mutex
	last   time.Time
	recent map[string]struct{}
	order  []string
}

// NewScanGuard returns a guard. now may be nil.
func NewScanGuard(cooldown time.Duration, capacity int, now func() time.Time) *ScanGuard {
	if capacity < 1 {
		capacity = 1
	}
	if now == nil {
		now = time.Now
	}
	return &ScanGuard{
		cooldown: cooldown,
		capacity: capacity,
		now:      now,
		recent:   make(map[string]struct{}, capacity),
	}
}

// Suppression reasons.
const (
	ReasonCooldown = "cooldown"
	ReasonRecent   = "recent"
	ReasonBusy     = "busy"
)

// Admit reports whether id may open a dialog and, if so, starts a new
// cooldown window. The returned reason is empty when admitted.
func (g *ScanGuard) Admit(id string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
		return false, ReasonCooldown
	}
	if _, ok := g.recent[id]; ok {
		return false, ReasonRecent
	}
	g.last = now
	return true, ""
}

// Mark adds id to the recently scanned set.
func (g *ScanGuard) Mark(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.recent[id]; ok {
		return
	}
	g.recent[id] = struct{}{}
	g.order = append(g.order, id)
	if len(g.order) > g.capacity {
		oldest := g.order[0]
		g.order = g.order[1:]
		delete(g.recent, oldest)
	}
}

// Seen reports whether id is in the recently scanned set.
func (g *ScanGuard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.recent[id]
	return ok
}

// Len returns the size of the recently scanned set.
func (g *ScanGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}
