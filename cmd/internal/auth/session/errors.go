package session

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature, expiry or type checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshMismatch is returned when a validly signed refresh token is not the one
	// currently registered for its identity: superseded, logged out or expired in the registry.
	ErrRefreshMismatch = errors.New("refresh token not active")

	// ErrRegistryUnavailable wraps failures of the backing session store.
	ErrRegistryUnavailable = errors.New("session registry unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
