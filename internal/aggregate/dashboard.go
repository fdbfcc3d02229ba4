package aggregate

import (
	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// DateRange is an inclusive range of days.
type DateRange struct {
	Start domain.Date `json:"start"`
	End   domain.Date `json:"end"`
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d domain.Date) bool {
	return d >= r.Start && d <= r.End
}

// MealTypeStat counts forecasts and presences for one meal.
type MealTypeStat struct {
	Meal       domain.Meal `json:"meal"`
	Forecast   int         `json:"forecast"`
	Presence   int         `json:"presence"`
	Percentage float64     `json:"percentage"`
}

// MessHallStats summarizes one mess hall over the range.
type MessHallStats struct {
	MessHallID    int64          `json:"mess_hall_id"`
	MessHallName  string         `json:"mess_hall_name"`
	TotalForecast int            `json:"total_forecast"`
	TotalPresence int            `json:"total_presence"`
	ByMeal        []MealTypeStat `json:"by_meal"`
}

// DailyMealStat holds forecast counts per meal for one day.
type DailyMealStat struct {
	Date   domain.Date `json:"date"`
	Cafe   int         `json:"cafe"`
	Almoco int         `json:"almoco"`
	Janta  int         `json:"janta"`
	Ceia   int         `json:"ceia"`
}

func (s *DailyMealStat) inc(m domain.Meal) {
	switch m {
	case domain.MealCafe:
		s.Cafe++
	case domain.MealAlmoco:
		s.Almoco++
	case domain.MealJanta:
		s.Janta++
	case domain.MealCeia:
		s.Ceia++
	}
}

// DashboardMetrics is the period overview for the admin dashboard.
type DashboardMetrics struct {
	TotalForecast     int             `json:"total_forecast"`
	TotalPresence     int             `json:"total_presence"`
	ByMealType        []MealTypeStat  `json:"by_meal_type"`
	ByMessHall        []MessHallStats `json:"by_mess_hall"`
	DailyDistribution []DailyMealStat `json:"daily_distribution"`
}

// AggregateDashboardMetrics computes period metrics over rng.
//
// Only will_eat forecasts and presences inside rng are counted. ByMessHall
// has one entry per hall in messHalls, in input order, even without
// activity. DailyDistribution has one entry per day of rng, ascending, with
// zero counts for days without forecasts.
func AggregateDashboardMetrics(forecasts []domain.Forecast, presences []domain.Presence, messHalls []domain.MessHall, rng DateRange) DashboardMetrics {
	fs := make([]domain.Forecast, 0, len(forecasts))
	for _, f := range forecasts {
		if f.WillEat && rng.Contains(f.Date) {
			fs = append(fs, f)
		}
	}
	ps := make([]domain.Presence, 0, len(presences))
	for _, p := range presences {
		if rng.Contains(p.Date) {
			ps = append(ps, p)
		}
	}

	days := domain.Range(rng.Start, rng.End)
	daily := make([]DailyMealStat, len(days))
	dayIdx := make(map[domain.Date]int, len(days))
	for i, d := range days {
		daily[i] = DailyMealStat{Date: d}
		dayIdx[d] = i
	}
	for _, f := range fs {
		if i, ok := dayIdx[f.Date]; ok {
			daily[i].inc(f.Meal)
		}
	}

	byHall := make([]MessHallStats, 0, len(messHalls))
	for _, mh := range messHalls {
		var hf []domain.Forecast
		for _, f := range fs {
			if f.MessHallID == mh.ID {
				hf = append(hf, f)
			}
		}
		var hp []domain.Presence
		for _, p := range ps {
			if p.MessHallID == mh.ID {
				hp = append(hp, p)
			}
		}
		byHall = append(byHall, MessHallStats{
			MessHallID:    mh.ID,
			MessHallName:  mh.DisplayName,
			TotalForecast: len(hf),
			TotalPresence: len(hp),
			ByMeal:        mealStats(hf, hp),
		})
	}

	return DashboardMetrics{
		TotalForecast:     len(fs),
		TotalPresence:     len(ps),
		ByMealType:        mealStats(fs, ps),
		ByMessHall:        byHall,
		DailyDistribution: daily,
	}
}

// mealStats returns one entry per meal; percentages are shares of len(fs).
func mealStats(fs []domain.Forecast, ps []domain.Presence) []MealTypeStat {
	out := make([]MealTypeStat, len(domain.Meals))
	for i, m := range domain.Meals {
		out[i].Meal = m
	}
	for _, f := range fs {
		if i := f.Meal.Order(); i < len(out) {
			out[i].Forecast++
		}
	}
	for _, p := range ps {
		if i := p.Meal.Order(); i < len(out) {
			out[i].Presence++
		}
	}
	for i := range out {
		out[i].Percentage = CalculatePercentage(out[i].Forecast, len(fs))
	}
	return out
}
