package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tandem/internal/models"
)

// Field length limits, counted in characters.
const (
	MaxMessageLength         = models.MaxMessageLength
	MaxPlanNameLength        = 100
	MaxPlanDescriptionLength = 500
	MaxTaskTitleLength       = 200
	MaxTaskDescriptionLength = 1000
	MaxSearchQueryLength     = 50
)

// RequiredText trims s and checks it is non-empty and at most max
// characters. The trimmed value is returned.
func RequiredText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(fmt.Sprintf("%s is required", field))
	}
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(fmt.Sprintf("%s must not exceed %d characters", field, max))
	}
	return s, nil
}

// OptionalText trims s and checks it is at most max characters.
func OptionalText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(fmt.Sprintf("%s must not exceed %d characters", field, max))
	}
	return s, nil
}

// MessageContent validates direct and plan chat message bodies.
func MessageContent(s string) (string, error) {
	return RequiredText("Message content", s, MaxMessageLength)
}
