package federation

import "errors"

var (
	// ErrMissingEmail is returned when a provider profile carries no email.
	ErrMissingEmail = errors.New("federation: provider returned no email")

	// ErrUnverifiedEmail is returned when the provider has not verified the profile email.
	ErrUnverifiedEmail = errors.New("federation: provider email is not verified")

	// ErrUnknownProvider is returned for a provider name that is not configured.
	ErrUnknownProvider = errors.New("federation: unknown provider")

	// ErrExchange wraps failures of the code exchange or profile fetch.
	ErrExchange = errors.New("federation: handshake failed")

	// ErrStateMismatch is returned when the callback state does not match the issued one.
	ErrStateMismatch = errors.New("federation: state mismatch")
)
