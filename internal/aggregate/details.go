package aggregate

import "github.com/tbourn/go-sisub-backend/internal/domain"

// MealRef is a (date, meal) pair.
type MealRef struct {
	Date domain.Date `json:"date"`
	Meal domain.Meal `json:"meal"`
}

// UserMealDetail lists what one user forecasted and attended.
type UserMealDetail struct {
	PersonDetail
	ForecastMeals []MealRef `json:"forecast_meals"`
	PresenceMeals []MealRef `json:"presence_meals"`
	ForecastCount int       `json:"forecast_count"`
	PresenceCount int       `json:"presence_count"`
}

// BuildUserMealDetails returns one entry per user in users, in input order.
// Only will_eat forecasts are listed.
func BuildUserMealDetails(forecasts []domain.Forecast, presences []domain.Presence, users []domain.UserData, dir Directory) []UserMealDetail {
	byUserF := map[string][]MealRef{}
	for _, f := range forecasts {
		if f.WillEat {
			byUserF[f.UserID] = append(byUserF[f.UserID], MealRef{f.Date, f.Meal})
		}
	}
	byUserP := map[string][]MealRef{}
	for _, p := range presences {
		byUserP[p.UserID] = append(byUserP[p.UserID], MealRef{p.Date, p.Meal})
	}

	out := make([]UserMealDetail, 0, len(users))
	for _, u := range users {
		fm := byUserF[u.ID]
		if fm == nil {
			fm = []MealRef{}
		}
		pm := byUserP[u.ID]
		if pm == nil {
			pm = []MealRef{}
		}
		out = append(out, UserMealDetail{
			PersonDetail:  dir.Person(u.ID),
			ForecastMeals: fm,
			PresenceMeals: pm,
			ForecastCount: len(fm),
			PresenceCount: len(pm),
		})
	}
	return out
}
