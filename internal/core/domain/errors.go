package domain

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrDuplicateUser          = errors.New("duplicate user")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid token")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrStreamNotFound         = errors.New("stream not found")

	// ErrStoreUnavailable marks technical store failures (connectivity, timeouts).
	// It must never be collapsed into a not-found result.
	ErrStoreUnavailable = errors.New("store unavailable")
)
