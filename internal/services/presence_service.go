// Package services – PresenceService
//
// PresenceService confirms, lists and removes meal presences. Every write
// enqueues an outbox event in the same transaction and invalidates the
// cached dashboards. A presence that already exists is reported as
// "already registered", which is an outcome and not an error.
//
// CheckinStore adapts PresenceService to checkin.Store so the fiscal QR flow
// writes through the same path.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-sisub-backend/internal/aggregate"
	"github.com/tbourn/go-sisub-backend/internal/cache"
	"github.com/tbourn/go-sisub-backend/internal/checkin"
	"github.com/tbourn/go-sisub-backend/internal/domain"
	"github.com/tbourn/go-sisub-backend/internal/events"
	"github.com/tbourn/go-sisub-backend/internal/repo"
)

// Slot is a (date, meal, mess hall) triple addressed by fiscals.
type Slot struct {
	Date       domain.Date `json:"date"`
	Meal       domain.Meal `json:"meal"`
	MessHallID int64       `json:"mess_hall_id"`
}

// Validate checks the slot fields. A missing mess hall is ErrUnitRequired.
func (s Slot) Validate() error {
	if s.MessHallID <= 0 {
		return ErrUnitRequired
	}
	if !s.Date.Valid() {
		return ErrInvalidDate
	}
	if !s.Meal.Valid() {
		return ErrInvalidMeal
	}
	return nil
}

// ConfirmResult is returned by Confirm.
type ConfirmResult struct {
	Presence          *domain.Presence `json:"presence,omitempty"`
	AlreadyRegistered bool             `json:"already_registered"`
}

// SelfCheckinResult is the outcome of a diner checking in with a mess hall
// QR code.
type SelfCheckinResult struct {
	MessHall          domain.MessHall  `json:"mess_hall"`
	Date              domain.Date      `json:"date"`
	Meal              domain.Meal      `json:"meal"`
	Forecast          *bool            `json:"forecast"`
	Entered           bool             `json:"entered"`
	AlreadyRegistered bool             `json:"already_registered"`
	Skipped           bool             `json:"skipped"`
	Presence          *domain.Presence `json:"presence,omitempty"`
}

// PresenceView is one row of a fiscal's attendance list.
type PresenceView struct {
	domain.Presence
	Person   aggregate.PersonDetail `json:"person"`
	Forecast *bool                  `json:"forecast"`
}

// PresenceService manages presences and walk-ins.
type PresenceService struct {
	DB    *gorm.DB
	Cache *cache.Service
	// Topic is the outbox topic for presence events.
	Topic string
	Log   zerolog.Logger
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(db *gorm.DB, c *cache.Service, topic string, logger zerolog.Logger) *PresenceService {
	if topic == "" {
		topic = events.DefaultTopic
	}
	return &PresenceService{
		DB:    db,
		Cache: c,
		Topic: topic,
		Log:   logger.With().Str("component", "presences").Logger(),
	}
}

// Lookup returns the user's will_eat for the slot, or nil when the user has
// no forecast for that mess hall.
func (s *PresenceService) Lookup(ctx context.Context, userID string, slot Slot) (*bool, error) {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "Lookup", trace.WithAttributes(slotAttrs(userID, slot)...))
	defer span.End()

	if err := slot.Validate(); err != nil {
		return nil, err
	}
	rows, err := repo.ListForecasts(ctx, s.DB, repo.ForecastFilter{
		UserID: userID, Start: slot.Date, End: slot.Date, Meal: slot.Meal,
		MessHallIDs: []int64{slot.MessHallID},
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	v := rows[0].WillEat
	return &v, nil
}

// Confirm inserts a presence for userID. A duplicate yields
// AlreadyRegistered with the existing row.
func (s *PresenceService) Confirm(ctx context.Context, userID string, slot Slot) (ConfirmResult, error) {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "Confirm", trace.WithAttributes(slotAttrs(userID, slot)...))
	defer span.End()

	if err := slot.Validate(); err != nil {
		return ConfirmResult{}, err
	}
	if userID == "" {
		return ConfirmResult{}, ErrUserNotFound
	}

	var created *domain.Presence
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.CreatePresence(ctx, tx, userID, slot.Date, slot.Meal, slot.MessHallID)
		if err != nil {
			return err
		}
		created = p
		return events.Enqueue(ctx, tx, events.Presence(s.Topic, events.PresenceConfirmed, p))
	})
	if errors.Is(err, repo.ErrDuplicate) {
		s.Log.Info().Str("user_id", userID).Str("date", slot.Date.String()).
			Str("meal", string(slot.Meal)).Int64("mess_hall_id", slot.MessHallID).
			Msg("presence already registered")
		existing, ferr := repo.FindPresence(ctx, s.DB, userID, slot.Date, slot.Meal, slot.MessHallID)
		if ferr != nil {
			existing = nil
		}
		return ConfirmResult{Presence: existing, AlreadyRegistered: true}, nil
	}
	if err != nil {
		return ConfirmResult{}, err
	}
	s.invalidate(ctx)
	return ConfirmResult{Presence: created}, nil
}

// SelfCheckin records the caller's own presence at the mess hall identified
// by code, for today and the meal inferred from now. When willEnter is false
// the decision is returned as skipped and nothing is written. The user's
// forecast for that slot is reported alongside the outcome.
func (s *PresenceService) SelfCheckin(ctx context.Context, userID, code string, willEnter bool, now time.Time) (SelfCheckinResult, error) {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "SelfCheckin", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("mess_hall_code", code),
		attribute.Bool("will_enter", willEnter),
	))
	defer span.End()

	if userID == "" {
		return SelfCheckinResult{}, ErrUserNotFound
	}
	mh, err := repo.GetMessHallByCode(ctx, s.DB, code)
	if errors.Is(err, repo.ErrNotFound) {
		return SelfCheckinResult{}, ErrMessHallNotFound
	}
	if err != nil {
		return SelfCheckinResult{}, err
	}

	slot := Slot{Date: domain.DateOf(now), Meal: domain.InferMeal(now), MessHallID: mh.ID}
	forecast, err := s.Lookup(ctx, userID, slot)
	if err != nil {
		return SelfCheckinResult{}, err
	}
	out := SelfCheckinResult{MessHall: *mh, Date: slot.Date, Meal: slot.Meal, Forecast: forecast}
	if !willEnter {
		out.Skipped = true
		return out, nil
	}

	res, err := s.Confirm(ctx, userID, slot)
	if err != nil {
		span.RecordError(err)
		return SelfCheckinResult{}, err
	}
	out.Entered = true
	out.AlreadyRegistered = res.AlreadyRegistered
	out.Presence = res.Presence
	return out, nil
}

// Get returns a presence by id or ErrPresenceNotFound.
func (s *PresenceService) Get(ctx context.Context, id string) (*domain.Presence, error) {
	p, err := repo.GetPresence(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPresenceNotFound
	}
	return p, err
}

// Delete removes a presence by id.
func (s *PresenceService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("presence_id", id)))
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPresence(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := repo.DeletePresence(ctx, tx, id); err != nil {
			return err
		}
		return events.Enqueue(ctx, tx, events.Presence(s.Topic, events.PresenceDeleted, p))
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPresenceNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// List returns the slot's presences, newest first, enriched with the
// person's details and forecast.
func (s *PresenceService) List(ctx context.Context, slot Slot) ([]PresenceView, error) {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(slotAttrs("", slot)...))
	defer span.End()

	if err := slot.Validate(); err != nil {
		return nil, err
	}
	ps, err := repo.ListPresences(ctx, s.DB, slotFilter(slot))
	if err != nil {
		return nil, err
	}
	out := make([]PresenceView, 0, len(ps))
	if len(ps) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.UserID)
	}
	fs, err := repo.ListForecasts(ctx, s.DB, repo.ForecastFilter{
		Start: slot.Date, End: slot.Date, Meal: slot.Meal, MessHallIDs: []int64{slot.MessHallID},
	})
	if err != nil {
		return nil, err
	}
	forecasts := make(map[string]bool, len(fs))
	for _, f := range fs {
		forecasts[f.UserID] = f.WillEat
	}
	dir, err := loadDirectory(ctx, s.DB, s.Cache, nil, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range ps {
		v := PresenceView{Presence: p, Person: dir.Person(p.UserID)}
		if f, ok := forecasts[p.UserID]; ok {
			v.Forecast = &f
		}
		out = append(out, v)
	}
	return out, nil
}

// Stats returns the slot's presence count and newest created_at for ETags.
func (s *PresenceService) Stats(ctx context.Context, slot Slot) (int64, *time.Time, error) {
	if err := slot.Validate(); err != nil {
		return 0, nil, err
	}
	return repo.PresenceStats(ctx, s.DB, slotFilter(slot))
}

// AddOther records a walk-in without a registered user.
func (s *PresenceService) AddOther(ctx context.Context, adminID string, slot Slot) (*domain.OtherPresence, error) {
	tr := otel.Tracer("services/PresenceService")
	ctx, span := tr.Start(ctx, "AddOther", trace.WithAttributes(slotAttrs(adminID, slot)...))
	defer span.End()

	if err := slot.Validate(); err != nil {
		return nil, err
	}
	var o *domain.OtherPresence
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = repo.CreateOtherPresence(ctx, tx, adminID, slot.Date, slot.Meal, slot.MessHallID); err != nil {
			return err
		}
		return events.Enqueue(ctx, tx, events.Event{
			Topic:         s.Topic,
			Type:          events.OtherPresenceAdd,
			AggregateType: events.AggregatePresence,
			AggregateID:   o.ID,
			Payload: events.PresenceEvent{
				PresenceID: o.ID, Date: o.Date, Meal: o.Meal,
				MessHallID: o.MessHallID, OccurredAt: o.CreatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return o, nil
}

// CountOthers counts walk-ins for the slot.
func (s *PresenceService) CountOthers(ctx context.Context, slot Slot) (int64, error) {
	if err := slot.Validate(); err != nil {
		return 0, err
	}
	return repo.CountOtherPresences(ctx, s.DB, slot.Date, slot.Meal, slot.MessHallID)
}

// CheckinStore adapts a PresenceService to checkin.Store.
type CheckinStore struct {
	Presences *PresenceService
}

var _ checkin.Store = CheckinStore{}

// ForecastFor implements checkin.Store.
func (c CheckinStore) ForecastFor(ctx context.Context, userID string, f checkin.Filter) (*bool, error) {
	return c.Presences.Lookup(ctx, userID, Slot(f))
}

// Confirm implements checkin.Store.
func (c CheckinStore) Confirm(ctx context.Context, userID string, f checkin.Filter) (bool, error) {
	res, err := c.Presences.Confirm(ctx, userID, Slot(f))
	return res.AlreadyRegistered, err
}

func (s *PresenceService) invalidate(ctx context.Context) {
	if err := s.Cache.InvalidateEntity(ctx, cache.EntityDashboard); err != nil {
		s.Log.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

func slotFilter(slot Slot) repo.PresenceFilter {
	return repo.PresenceFilter{Date: slot.Date, Meal: slot.Meal, MessHallIDs: []int64{slot.MessHallID}}
}

func slotAttrs(userID string, slot Slot) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("user_id", userID),
		attribute.String("date", slot.Date.String()),
		attribute.String("meal", string(slot.Meal)),
		attribute.Int64("mess_hall_id", slot.MessHallID),
	}
}
