package service

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Field order in RegisterInput is the order rules are reported in.
var registerMessages = map[string]string{
	"Username": "Username is required",
	"Email":    "Valid email is required",
	"Password": "Password must be at least 6 characters long",
	"FullName": "Full name is required",
	"Role":     "Invalid role selected",
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// firstViolation converts the first failing field of a validator error into a
// ValidationError using messages, falling back to fallback.
func firstViolation(err error, messages map[string]string, fallback string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := messages[fieldErrs[0].StructField()]; ok {
			return &ValidationError{Message: msg}
		}
	}
	return &ValidationError{Message: fallback}
}
