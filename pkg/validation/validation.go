package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ECS service names: letter first, then letters, digits, hyphens, underscores
	serviceIDRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,254}$`)
)

const (
	maxUserIDLength = 128
	maxCapacity     = 1000
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateServiceID checks that id is usable as a compute service name
func ValidateServiceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: service id cannot be empty", ErrInvalidInput)
	}
	if SanitizeString(id) != id {
		return fmt.Errorf("%w: service id contains whitespace or control characters", ErrInvalidInput)
	}
	if !serviceIDRegex.MatchString(id) {
		return fmt.Errorf("%w: service id must start with a letter and contain only letters, numbers, hyphens, and underscores", ErrInvalidInput)
	}
	return nil
}

// ValidateUserID checks the subject identity carried by a token
func ValidateUserID(id string) error {
	clean := SanitizeString(id)
	if clean == "" {
		return fmt.Errorf("%w: user id cannot be empty", ErrInvalidInput)
	}
	if clean != id {
		return fmt.Errorf("%w: user id contains whitespace or control characters", ErrInvalidInput)
	}
	if len(id) > maxUserIDLength {
		return fmt.Errorf("%w: user id must not exceed %d characters", ErrInvalidInput, maxUserIDLength)
	}
	return nil
}

// ValidateCapacityBounds checks min/max task counts; min may be zero
func ValidateCapacityBounds(min, max int) error {
	if min < 0 {
		return fmt.Errorf("%w: min capacity must be >= 0", ErrInvalidInput)
	}
	if max < 1 || max < min {
		return fmt.Errorf("%w: max capacity must be >= max(1, min capacity)", ErrInvalidInput)
	}
	if max > maxCapacity {
		return fmt.Errorf("%w: max capacity cannot exceed %d", ErrInvalidInput, maxCapacity)
	}
	return nil
}
