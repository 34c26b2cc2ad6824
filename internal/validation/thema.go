// Package validation holds input validation rules shared by services.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxThemaNameLength = 64

// ValidateThemaName validates a thema's display name. Themata are always
// addressed by id, never by name, so the name stays free-form.
func ValidateThemaName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if trimmed != name {
		return fmt.Errorf("name cannot start or end with whitespace")
	}
	if utf8.RuneCountInString(name) > maxThemaNameLength {
		return fmt.Errorf("name cannot exceed %d characters", maxThemaNameLength)
	}
	return nil
}

const maxConversationNameLength = 64

// ValidateConversationName validates a group conversation's display name.
func ValidateConversationName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if trimmed != name {
		return fmt.Errorf("name cannot start or end with whitespace")
	}
	if utf8.RuneCountInString(name) > maxConversationNameLength {
		return fmt.Errorf("name cannot exceed %d characters", maxConversationNameLength)
	}
	return nil
}
