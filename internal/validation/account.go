// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 20
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// FieldErrors accumulates per-field validation messages so callers can
// surface every problem in a single response.
type FieldErrors map[string]string

// Add records a message for a field, keeping the first message per field.
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", minUsernameLen)
	}
	if len(username) > maxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLen)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLen)
	}
	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}
	return nil
}

// ValidateRegistration validates all registration fields at once and returns
// the full set of failures rather than stopping at the first.
func ValidateRegistration(username, email, password string) FieldErrors {
	errs := FieldErrors{}
	if err := ValidateUsername(username); err != nil {
		errs.Add("username", err.Error())
	}
	if err := ValidateEmail(email); err != nil {
		errs.Add("email", err.Error())
	}
	if err := ValidatePassword(password); err != nil {
		errs.Add("password", err.Error())
	}
	return errs
}
