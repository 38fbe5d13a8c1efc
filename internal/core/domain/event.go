package domain

import "time"

// AuthEventType classifies an entry of the authentication audit trail.
type AuthEventType string

const (
	EventSignUp          AuthEventType = "sign_up"
	EventSignInSuccess   AuthEventType = "sign_in_success"
	EventSignInFailure   AuthEventType = "sign_in_failure"
	EventSignInThrottled AuthEventType = "sign_in_throttled"
)

// AuthEvent records an authentication outcome. It never carries credentials
// or tokens.
type AuthEvent struct {
	Type   AuthEventType
	Email  string
	UserID string // empty when the account could not be resolved
	At     time.Time
}
