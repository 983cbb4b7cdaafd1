package validator

import (
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// notblank rejects strings made only of whitespace
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	// finite rejects NaN and infinities
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Float32 && field.Kind() != reflect.Float64 {
			return true
		}
		f := field.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}
