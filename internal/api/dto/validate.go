package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation and converts failures into a
// field-keyed validation error.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := map[string]any{}
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return errorutil.NewValidationError("invalid payload", details)
	}
	return errorutil.NewValidationError("invalid payload", nil)
}
