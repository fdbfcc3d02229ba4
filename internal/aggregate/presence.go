package aggregate

import (
	"sort"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// AggregatedPresenceRecord compares forecasts and presences for one
// (date, meal, mess hall) slot.
//
// Absences, Attended and Extras are disjoint and together hold every user
// that forecasted or attended the slot.
type AggregatedPresenceRecord struct {
	Date           domain.Date    `json:"date"`
	Meal           domain.Meal    `json:"meal"`
	MessHallID     int64          `json:"mess_hall_id"`
	MessHallName   string         `json:"mess_hall_name"`
	ForecastCount  int            `json:"forecast_count"`
	PresenceCount  int            `json:"presence_count"`
	Difference     int            `json:"difference"`
	AttendanceRate float64        `json:"attendance_rate"`
	Absences       []PersonDetail `json:"absences"`
	Attended       []PersonDetail `json:"attended"`
	Extras         []PersonDetail `json:"extras"`
}

// SlotKey identifies one aggregation group.
type SlotKey struct {
	Date       domain.Date
	Meal       domain.Meal
	MessHallID int64
}

// Less orders keys by date, meal order, then mess hall id.
func (k SlotKey) Less(o SlotKey) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	if k.Meal.Order() != o.Meal.Order() {
		return k.Meal.Order() < o.Meal.Order()
	}
	return k.MessHallID < o.MessHallID
}

type slot struct {
	forecast map[string]struct{}
	presence map[string]struct{}
}

// AggregatePresenceData groups forecasts (will_eat only) and presences by
// slot and classifies each user. Counts are distinct users. The result is
// ordered by SlotKey.Less and persons inside each list by user id.
func AggregatePresenceData(forecasts []domain.Forecast, presences []domain.Presence, dir Directory) []AggregatedPresenceRecord {
	groups := map[SlotKey]*slot{}
	get := func(k SlotKey) *slot {
		s, ok := groups[k]
		if !ok {
			s = &slot{forecast: map[string]struct{}{}, presence: map[string]struct{}{}}
			groups[k] = s
		}
		return s
	}

	for _, f := range forecasts {
		if !f.WillEat {
			continue
		}
		get(SlotKey{f.Date, f.Meal, f.MessHallID}).forecast[f.UserID] = struct{}{}
	}
	for _, p := range presences {
		get(SlotKey{p.Date, p.Meal, p.MessHallID}).presence[p.UserID] = struct{}{}
	}

	keys := make([]SlotKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]AggregatedPresenceRecord, 0, len(keys))
	for _, k := range keys {
		s := groups[k]
		rec := AggregatedPresenceRecord{
			Date:          k.Date,
			Meal:          k.Meal,
			MessHallID:    k.MessHallID,
			MessHallName:  dir.MessHallName(k.MessHallID),
			ForecastCount: len(s.forecast),
			PresenceCount: len(s.presence),
			Absences:      []PersonDetail{},
			Attended:      []PersonDetail{},
			Extras:        []PersonDetail{},
		}
		rec.Difference = rec.PresenceCount - rec.ForecastCount
		rec.AttendanceRate = CalculatePercentage(rec.PresenceCount, rec.ForecastCount)

		for _, uid := range sortedIDs(s.forecast) {
			if _, came := s.presence[uid]; came {
				rec.Attended = append(rec.Attended, dir.Person(uid))
			} else {
				rec.Absences = append(rec.Absences, dir.Person(uid))
			}
		}
		for _, uid := range sortedIDs(s.presence) {
			if _, planned := s.forecast[uid]; !planned {
				rec.Extras = append(rec.Extras, dir.Person(uid))
			}
		}
		out = append(out, rec)
	}
	return out
}

// FindRecord returns the record for k, if present.
func FindRecord(records []AggregatedPresenceRecord, k SlotKey) (AggregatedPresenceRecord, bool) {
	for _, r := range records {
		if r.Date == k.Date && r.Meal == k.Meal && r.MessHallID == k.MessHallID {
			return r, true
		}
	}
	return AggregatedPresenceRecord{}, false
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
