// Package models provides the domain types exchanged with the Coach AI backend.
//
// The backend is not strict about response shapes: lists come either wrapped
// in an object or bare, and some records use alternate field names. Each
// entity has exactly one normalization function in this package (see
// normalize.go) so callers never deal with those variants.
//
// Example usage:
//
//	convs := models.ConversationsFromJSON(body)
//	for _, c := range models.SortByRecency(convs) {
//	    fmt.Println(c.DisplayTitle())
//	}
package models

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

// User is the identity of the signed-in account.
//
// Name is optional; the backend may omit it and a login fallback only
// knows the email address.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Validation errors for User.
var (
	// ErrEmptyEmail is returned when the email field is empty or whitespace-only.
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail is returned when the email does not match RFC 5322 format.
	ErrInvalidEmail = errors.New("email format is invalid")

	// ErrEmptyName is returned when the name field is empty or whitespace-only.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNameTooShort is returned when the name is less than MinNameLength characters.
	ErrNameTooShort = errors.New("name must be at least 2 characters")

	// ErrNameTooLong is returned when the name exceeds MaxNameLength characters.
	ErrNameTooLong = errors.New("name cannot exceed 100 characters")

	// ErrInvalidName is returned when the name contains invalid characters.
	ErrInvalidName = errors.New("name contains invalid characters")

	// ErrEmptyPassword is returned when a credential has no password.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Name length limits.
const (
	MinNameLength = 2
	MaxNameLength = 100
)

// Credentials is the body posted to the session endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body posted to the registration endpoint.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewRegistration trims and validates a sign-up request.
func NewRegistration(name, email, password string) (Registration, error) {
	r := Registration{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	u := User{Email: r.Email, Name: r.Name}
	if err := u.Validate(); err != nil {
		return Registration{}, err
	}
	if password == "" {
		return Registration{}, ErrEmptyPassword
	}
	return r, nil
}

// DisplayName returns Name, falling back to Email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Validate checks both email and name.
func (u *User) Validate() error {
	if err := u.ValidateEmail(); err != nil {
		return err
	}
	return u.ValidateName()
}

// ValidateEmail validates the user's email address.
func (u *User) ValidateEmail() error {
	return ValidateEmail(u.Email)
}

// ValidateEmail validates a bare email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateName validates the user's name: 2-100 characters of letters,
// spaces, hyphens and apostrophes.
func (u *User) ValidateName() error {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return ErrEmptyName
	}

	n := len([]rune(name))
	if n < MinNameLength {
		return ErrNameTooShort
	}
	if n > MaxNameLength {
		return ErrNameTooLong
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '-' && r != '\'' {
			return ErrInvalidName
		}
	}
	return nil
}
