package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-sisub-backend/internal/domain"
)

var registerOnce sync.Once

// mustRegisterValidators adds the "meal" and "isodate" tags to gin's
// validator. Empty values pass; combine with "required" where needed.
func mustRegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("handlers: gin binding engine is not go-playground/validator")
		}
		if err := v.RegisterValidation("meal", validMeal); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("isodate", validISODate); err != nil {
			panic(err)
		}
	})
}

func validMeal(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := domain.ParseMeal(s)
	return err == nil
}

func validISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || domain.Date(s).Valid()
}
