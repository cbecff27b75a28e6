// Package validation checks user supplied input before it reaches the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxNameLength     = 100
	MaxTitleLength    = 200
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateUsername checks length and allowed characters
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ValidationError{Field: "username", Message: fmt.Sprintf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "username may only contain letters, digits, '.', '-' and '_'"}
	}
	return nil
}

// ValidateFamilyName checks a family name. Blank names are rejected by the caller with its own message.
func ValidateFamilyName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidateEventTitle checks an event title
func ValidateEventTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}
