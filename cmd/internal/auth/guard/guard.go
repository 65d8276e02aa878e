// Package guard verifies bearer access tokens on inbound requests and exposes
// the verified identity to downstream handlers.
package guard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"authsvc/cmd/internal/auth/session"
)

var (
	// ErrMissingToken means no bearer token was presented.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken covers bad signature, malformed and expired tokens alike.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Principal is the verified identity behind an access token.
type Principal struct {
	ID    string
	Email string
}

// Verifier checks access tokens. *session.Service satisfies it.
type Verifier interface {
	VerifyAccess(tok string) (session.AccessClaims, error)
}

// Guard turns Authorization headers into principals.
type Guard struct {
	v Verifier
}

// New returns a Guard backed by v.
func New(v Verifier) *Guard {
	return &Guard{v: v}
}

// Verify checks an Authorization header value ("Bearer <token>").
func (g *Guard) Verify(authorization string) (Principal, error) {
	tok := BearerToken(authorization)
	if tok == "" {
		return Principal{}, ErrMissingToken
	}
	claims, err := g.v.VerifyAccess(tok)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: claims.UserID, Email: claims.Email}, nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the scheme is not Bearer or the token is empty.
func BearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ErrorWriter renders a guard failure. err is ErrMissingToken or ErrInvalidToken.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid access token and stores the
// Principal in the request context for the next handler.
func (g *Guard) Middleware(onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultErrorWriter
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Verify(r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// StatusFor maps guard errors to HTTP status codes: 401 missing, 403 invalid.
func StatusFor(err error) int {
	if errors.Is(err, ErrMissingToken) {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

func defaultErrorWriter(w http.ResponseWriter, _ *http.Request, err error) {
	http.Error(w, http.StatusText(StatusFor(err)), StatusFor(err))
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by Middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
