// Package common defines the sentinel errors and shared constants used
// across the authentication core. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Generic service failure. The cause is logged, never returned to clients.
	ErrorInternal = errors.New("internal error")

	// Registration errors.
	ErrInvalidRegistration = errors.New("invalid registration data")
	ErrStorageFailure      = errors.New("storage failure")

	// Login errors. Unknown email and wrong password both yield
	// ErrInvalidCredentials so callers cannot enumerate accounts.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token codec errors.
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")

	// Guard errors.
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)
