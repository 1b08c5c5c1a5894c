package server

import (
	"github.com/go-playground/validator/v10"
)

// requestValidator adapts validator/v10 to echo.Validator.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
