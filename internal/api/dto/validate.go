package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/dossier-service/pkg/errorutil"
)

var validate = validator.New()

// Validate checks struct tags and maps violations to a validation error.
func Validate(payload any) error {
	if err := validate.Struct(payload); err != nil {
		details := map[string]any{}
		if violations, ok := err.(validator.ValidationErrors); ok {
			for _, violation := range violations {
				details[violation.Field()] = violation.Tag()
			}
		}
		return errorutil.NewValidationError("invalid payload", details)
	}
	return nil
}
