package http

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// formatValidationErrors собирает человекочитаемое описание ошибок валидации.
func formatValidationErrors(validationErrors validator.ValidationErrors) string {
	messages := make([]string, 0, len(validationErrors))

	for _, fieldErr := range validationErrors {
		var message string

		switch fieldErr.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", fieldErr.Field())
		case "email":
			message = fmt.Sprintf("Field '%s' must be a valid email address", fieldErr.Field())
		case "min":
			message = fmt.Sprintf("Field '%s' must be at least %s characters long", fieldErr.Field(), fieldErr.Param())
		default:
			message = fmt.Sprintf("Field '%s' is invalid", fieldErr.Field())
		}

		messages = append(messages, message)
	}

	return strings.Join(messages, "; ")
}
