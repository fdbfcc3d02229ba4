package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the position of a Flow in the confirmation cycle.
type State string

const (
	StateAwaitingScan State = "awaiting_scan"
	StateDialogOpen   State = "dialog_open"
	StateConfirming   State = "confirming"
	StateDone         State = "done"
)

// Store is what the flow needs from persistence.
type Store interface {
	// ForecastFor returns the user's will_eat for the slot, or nil when the
	// user has no forecast row.
	ForecastFor(ctx context.Context, userID string, f Filter) (*bool, error)
	// Confirm inserts a presence. already is true when one existed.
	Confirm(ctx context.Context, userID string, f Filter) (already bool, err error)
}

// Dialog is the open confirmation. SystemForecast is informational;
// WillEnter is the decision.
type Dialog struct {
	UserID         string    `json:"user_id"`
	SystemForecast *bool     `json:"system_forecast"`
	WillEnter      bool      `json:"will_enter"`
	OpenedAt       time.Time `json:"opened_at"`
	Interacted     bool      `json:"interacted"`
}

// Outcome is the result of a confirmation.
type Outcome struct {
	UserID            string    `json:"user_id"`
	Filter            Filter    `json:"filter"`
	Entered           bool      `json:"entered"`
	AlreadyRegistered bool      `json:"already_registered"`
	Skipped           bool      `json:"skipped"`
	Auto              bool      `json:"auto"`
	At                time.Time `json:"at"`
}

// ScanResult describes what a scan did.
type ScanResult struct {
	Opened bool    `json:"opened"`
	UserID string  `json:"user_id,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Dialog *Dialog `json:"dialog,omitempty"`
}

// View is a snapshot of a flow.
type View struct {
	State       State    `json:"state"`
	Filter      Filter   `json:"filter"`
	AutoConfirm bool     `json:"auto_confirm"`
	Dialog      *Dialog  `json:"dialog,omitempty"`
	Last        *Outcome `json:"last_outcome,omitempty"`
}

// Options tunes a Flow.
type Options struct {
	Cooldown         time.Duration // default 800ms
	RecentCapacity   int           // default 300
	AutoConfirmDelay time.Duration // default 3s
	ConfirmTimeout   time.Duration // for auto-confirm writes; default 10s
	Now              func() time.Time
	Logger           zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = 800 * time.Millisecond
	}
	if o.RecentCapacity <= 0 {
		o.RecentCapacity = 300
	}
	if o.AutoConfirmDelay <= 0 {
		o.AutoConfirmDelay = 3 * time.Second
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Flow is one fiscal's check-in session. It is safe for concurrent use.
type Flow struct {
	store Store
	guard *ScanGuard
	opts  Options
	log   zerolog.Logger

	mu          sync.Mutex
	state       State
	filter      Filter
	autoConfirm bool
	processing  bool
	dialog      *Dialog
	last        *Outcome
	timer       *time.Timer
	gen         uint64 // bumps on every dialog change; stale timers check it
	closed      bool
}

// NewFlow returns a flow awaiting a scan with filter f.
func NewFlow(store Store, f Filter, opts Options) *Flow {
	opts = opts.withDefaults()
	return &Flow{
		store:  store,
		guard:  NewScanGuard(opts.Cooldown, opts.RecentCapacity, opts.Now),
		opts:   opts,
		log:    opts.Logger.With().Str("component", "checkin").Logger(),
		state:  StateAwaitingScan,
		filter: f,
	}
}

// SetFilter changes the active slot. It is rejected while a dialog is open.
func (f *Flow) SetFilter(flt Filter) error {
	if err := flt.Validate(f.opts.Now()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDialogOpen || f.state == StateConfirming {
		return ErrBusy
	}
	f.filter = flt
	return nil
}

// SetAutoConfirm toggles auto-confirmation for subsequent dialogs.
func (f *Flow) SetAutoConfirm(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoConfirm = on
	if !on {
		f.stopTimerLocked()
	}
}

// Scan processes a decoded payload. Suppressed scans return Opened=false
// with a reason and no error.
func (f *Flow) Scan(ctx context.Context, payload string) (ScanResult, error) {
	id, err := ExtractUserID(payload)
	if err != nil {
		scansTotal.WithLabelValues("invalid").Inc()
		return ScanResult{}, err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ScanResult{}, ErrClosed
	}
	if f.processing || f.state == StateDialogOpen || f.state == StateConfirming {
		f.mu.Unlock()
		scansTotal.WithLabelValues(ReasonBusy).Inc()
		return ScanResult{UserID: id, Reason: ReasonBusy}, nil
	}
	if f.filter.MessHallID <= 0 {
		f.mu.Unlock()
		return ScanResult{}, ErrUnitRequired
	}
	if ok, reason := f.guard.Admit(id); !ok {
		f.mu.Unlock()
		scansTotal.WithLabelValues(reason).Inc()
		return ScanResult{UserID: id, Reason: reason}, nil
	}
	f.processing = true
	flt := f.filter
	f.mu.Unlock()

	forecast, err := f.store.ForecastFor(ctx, id, flt)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.processing = false
	if err != nil {
		scansTotal.WithLabelValues("error").Inc()
		f.log.Error().Err(err).Str("user_id", id).Msg("forecast lookup failed")
		return ScanResult{}, err
	}
	if f.closed {
		return ScanResult{}, ErrClosed
	}
	d := &Dialog{UserID: id, SystemForecast: forecast, WillEnter: true, OpenedAt: f.opts.Now()}
	f.dialog = d
	f.state = StateDialogOpen
	f.gen++
	f.guard.Mark(id)
	if f.autoConfirm {
		f.armTimerLocked()
	}
	scansTotal.WithLabelValues("opened").Inc()
	cp := *d
	return ScanResult{Opened: true, UserID: id, Dialog: &cp}, nil
}

// SetWillEnter records the decision and cancels any auto-confirm.
func (f *Flow) SetWillEnter(enter bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateDialogOpen || f.dialog == nil {
		return ErrNoDialog
	}
	f.dialog.WillEnter = enter
	f.dialog.Interacted = true
	f.stopTimerLocked()
	return nil
}

// Confirm applies the open dialog's decision.
func (f *Flow) Confirm(ctx context.Context) (Outcome, error) {
	return f.confirm(ctx, 0, false)
}

// confirm runs the decision. When auto is set, gen must still match the
// dialog the timer was armed for.
func (f *Flow) confirm(ctx context.Context, gen uint64, auto bool) (Outcome, error) {
	f.mu.Lock()
	if f.state == StateConfirming {
		f.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if f.state != StateDialogOpen || f.dialog == nil || (auto && (gen != f.gen || f.dialog.Interacted)) {
		f.mu.Unlock()
		return Outcome{}, ErrNoDialog
	}
	f.stopTimerLocked()
	f.state = StateConfirming
	d := *f.dialog
	flt := f.filter
	f.mu.Unlock()

	out := Outcome{UserID: d.UserID, Filter: flt, Auto: auto}
	var err error
	if d.WillEnter {
		var already bool
		already, err = f.store.Confirm(ctx, d.UserID, flt)
		out.Entered = err == nil
		out.AlreadyRegistered = already
	} else {
		out.Skipped = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out.At = f.opts.Now()
	if err != nil {
		f.state = StateDialogOpen
		confirmsTotal.WithLabelValues("error").Inc()
		f.log.Error().Err(err).Str("user_id", d.UserID).Msg("presence confirmation failed")
		return Outcome{}, err
	}
	switch {
	case out.Skipped:
		confirmsTotal.WithLabelValues("skipped").Inc()
	case out.AlreadyRegistered:
		confirmsTotal.WithLabelValues("already_registered").Inc()
		f.log.Info().Str("user_id", d.UserID).Msg("presence already registered")
	default:
		confirmsTotal.WithLabelValues("entered").Inc()
	}
	f.dialog = nil
	f.gen++
	f.state = StateDone
	f.last = &out
	return out, nil
}

// Cancel closes the dialog without recording anything.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateDialogOpen {
		return ErrNoDialog
	}
	f.stopTimerLocked()
	f.dialog = nil
	f.gen++
	f.state = StateAwaitingScan
	return nil
}

// View returns a snapshot of the flow.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{State: f.state, Filter: f.filter, AutoConfirm: f.autoConfirm}
	if f.dialog != nil {
		d := *f.dialog
		v.Dialog = &d
	}
	if f.last != nil {
		o := *f.last
		v.Last = &o
	}
	return v
}

// Close stops timers; further scans fail with ErrClosed.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stopTimerLocked()
}

// closeIfQuiet closes the flow unless a dialog is open or a confirmation is
// running.
func (f *Flow) closeIfQuiet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDialogOpen || f.state == StateConfirming || f.processing {
		return false
	}
	f.closed = true
	f.stopTimerLocked()
	return true
}

func (f *Flow) armTimerLocked() {
	f.stopTimerLocked()
	gen := f.gen
	f.timer = time.AfterFunc(f.opts.AutoConfirmDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.opts.ConfirmTimeout)
		defer cancel()
		if _, err := f.confirm(ctx, gen, true); err != nil && err != ErrNoDialog {
			f.log.Warn().Err(err).Msg("auto-confirm failed")
		}
	})
}

func (f *Flow) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
