package domain

import (
	"fmt"
	"strings"
	"time"
)

// Meal identifies one of the four daily meal slots served by a mess hall.
type Meal string

const (
	MealCafe   Meal = "cafe"
	MealAlmoco Meal = "almoco"
	MealJanta  Meal = "janta"
	MealCeia   Meal = "ceia"
)

// Meals lists every meal in serving order.
var Meals = []Meal{MealCafe, MealAlmoco, MealJanta, MealCeia}

var mealLabels = map[Meal]string{
	MealCafe:   "Café",
	MealAlmoco: "Almoço",
	MealJanta:  "Jantar",
	MealCeia:   "Ceia",
}

// ParseMeal validates s (case-insensitive) and returns the matching Meal.
func ParseMeal(s string) (Meal, error) {
	m := Meal(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid meal %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the known meals.
func (m Meal) Valid() bool {
	_, ok := mealLabels[m]
	return ok
}

// Order returns the serving position of m (0..3), or len(Meals) for unknown values
// so they sort last.
func (m Meal) Order() int {
	for i, v := range Meals {
		if v == m {
			return i
		}
	}
	return len(Meals)
}

// Label returns the pt-BR display label.
func (m Meal) Label() string {
	if l, ok := mealLabels[m]; ok {
		return l
	}
	return string(m)
}

// InferMeal picks the meal a fiscal is most likely checking at instant t
// (local hour): 04–09 café, 09–15 almoço, 15–20 janta, otherwise ceia.
func InferMeal(t time.Time) Meal {
	h := t.Hour()
	switch {
	case h >= 4 && h < 9:
		return MealCafe
	case h >= 9 && h < 15:
		return MealAlmoco
	case h >= 15 && h < 20:
		return MealJanta
	default:
		return MealCeia
	}
}
