// Package events defines the typed payloads published by the client's stores.
package events

import "time"

// AuthEventType represents auth-specific event types.
type AuthEventType string

// Auth event type constants.
//
//nolint:gosec // G101 false positive - these are event type names, not credentials
const (
	AuthEventLoggedIn     AuthEventType = "logged_in"
	AuthEventLoginFailed  AuthEventType = "login_failed"
	AuthEventRegistered   AuthEventType = "registered"
	AuthEventLoggedOut    AuthEventType = "logged_out"
	AuthEventVerified     AuthEventType = "verified"
	AuthEventVerifyFailed AuthEventType = "verify_failed"
)

// AuthEvent represents a session lifecycle event.
type AuthEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      AuthEventType
	Email     string
	UserID    string
	Timestamp time.Time

	// Error is set for LoginFailed and VerifyFailed.
	Error error
}

// NewLoggedInEvent creates a logged-in event.
func NewLoggedInEvent(userID, email string) AuthEvent {
	return AuthEvent{Type: AuthEventLoggedIn, UserID: userID, Email: email, Timestamp: time.Now()}
}

// NewRegisteredEvent creates a registration event.
func NewRegisteredEvent(userID, email string) AuthEvent {
	return AuthEvent{Type: AuthEventRegistered, UserID: userID, Email: email, Timestamp: time.Now()}
}

// NewLoginFailedEvent creates a login failure event.
func NewLoginFailedEvent(email string, err error) AuthEvent {
	return AuthEvent{Type: AuthEventLoginFailed, Email: email, Error: err, Timestamp: time.Now()}
}

// NewLoggedOutEvent creates a logout event.
func NewLoggedOutEvent() AuthEvent {
	return AuthEvent{Type: AuthEventLoggedOut, Timestamp: time.Now()}
}

// NewVerifiedEvent creates a token verification success event.
func NewVerifiedEvent(userID, email string) AuthEvent {
	return AuthEvent{Type: AuthEventVerified, UserID: userID, Email: email, Timestamp: time.Now()}
}

// NewVerifyFailedEvent creates a token verification failure event.
func NewVerifyFailedEvent(err error) AuthEvent {
	return AuthEvent{Type: AuthEventVerifyFailed, Error: err, Timestamp: time.Now()}
}
