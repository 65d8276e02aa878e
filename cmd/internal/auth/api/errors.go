package authapi

import (
	"errors"
	"net/http"

	"authsvc/cmd/internal/auth/account"
	"authsvc/cmd/internal/auth/guard"
)

// statusFor maps an account failure to its HTTP status.
func statusFor(e *account.Error) int {
	switch e.Kind {
	case account.KindValidation:
		return http.StatusBadRequest
	case account.KindConflict:
		return http.StatusConflict
	case account.KindAuthentication:
		switch e.Code {
		case account.CodeWrongProvider:
			return http.StatusBadRequest
		case account.CodeInvalidRefresh:
			return http.StatusForbidden
		default:
			return http.StatusUnauthorized
		}
	case account.KindNotFound:
		return http.StatusNotFound
	case account.KindFederation:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders any error returned by the account service.
// Internal causes are never written to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var e *account.Error
	if !errors.As(err, &e) {
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}
	code := e.Code
	if code == "" {
		code = e.Kind.String()
	}
	msg := e.Msg
	if msg == "" {
		msg = http.StatusText(statusFor(e))
	}
	writeError(w, statusFor(e), code, msg)
}

// writeGuardError renders access guard failures: 401 without a token, 403 for a bad one.
func writeGuardError(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, guard.ErrMissingToken) {
		writeError(w, guard.StatusFor(err), "missing_token", "Access token required")
		return
	}
	writeError(w, guard.StatusFor(err), "invalid_token", "Invalid or expired token")
}
