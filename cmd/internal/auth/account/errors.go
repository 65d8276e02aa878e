package account

import (
	"errors"
	"fmt"
)

// Kind classifies failures for transport mapping.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindNotFound
	KindTransient
	KindFederation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindFederation:
		return "federation"
	default:
		return "unknown"
	}
}

// Stable machine-readable codes carried by Error.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidEmail       = "invalid_email"
	CodeWeakPassword       = "invalid_password"
	CodeEmailTaken         = "email_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeWrongProvider      = "wrong_provider"
	CodeInvalidRefresh     = "invalid_refresh_token"
	CodeUserNotFound       = "user_not_found"
	CodeUnavailable        = "unavailable"
	CodeFederationFailed   = "federation_failed"
)

// Error is the typed failure returned by Service.
// Msg is safe to show to clients; Err is the internal cause and is not.
type Error struct {
	Op   string
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, and by Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Match targets for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrAuthentication     = &Error{Kind: KindAuthentication}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Code: CodeInvalidCredentials}
	ErrWrongProvider      = &Error{Kind: KindAuthentication, Code: CodeWrongProvider}
	ErrInvalidRefresh     = &Error{Kind: KindAuthentication, Code: CodeInvalidRefresh}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrTransient          = &Error{Kind: KindTransient}
	ErrFederation         = &Error{Kind: KindFederation}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
