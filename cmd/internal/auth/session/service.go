package session

import (
	"context"
	"errors"
	"time"

	"authsvc/cmd/security/token"
)

// Pair is the result of issuing or rotating a session.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Loader reloads the identity behind a refresh token and returns the email to
// embed in the new access token. Its errors are returned from Rotate unchanged.
type Loader func(ctx context.Context, userID string) (email string, err error)

// Service implements the session lifecycle: issue, rotate, revoke, verify.
type Service struct {
	cfg      Config
	tokens   *TokenManager
	registry Registry
	digests  token.Hasher
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for minting and verification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service over registry.
func NewService(cfg Config, registry Registry, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, errors.New("session: nil registry")
	}
	tokens, err := NewTokenManager(cfg)
	if err != nil {
		return nil, err
	}
	digests, err := token.NewHasher([]byte(cfg.RefreshSecret), MinSecretBytes)
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}

	s := &Service{
		cfg:      cfg,
		tokens:   tokens,
		registry: registry,
		digests:  digests,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.now() }

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Start mints a fresh pair for userID and records its refresh token,
// replacing any previous session of that identity.
//
// The registry write happens only after both tokens are signed, so a failure
// or cancellation leaves the previous record untouched.
func (s *Service) Start(ctx context.Context, userID, email string) (Pair, error) {
	now := s.now()

	access, accessExp, err := s.tokens.IssueAccess(userID, email, now)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(userID, now)
	if err != nil {
		return Pair{}, err
	}

	if err := s.registry.Put(ctx, userID, s.digests.Digest(refresh), s.cfg.RefreshTokenTTL); err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Rotate exchanges a refresh token for a new pair.
//
// It fails with ErrInvalidToken when the token is malformed, expired or badly
// signed, and with ErrRefreshMismatch when it is not the identity's current
// refresh token. On success the registry holds the new token only.
// Concurrent rotations of the same token race; the last registry write wins.
func (s *Service) Rotate(ctx context.Context, refreshToken string, load Loader) (Pair, string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken, s.now())
	if err != nil {
		return Pair{}, "", err
	}

	digest, ok, err := s.registry.Get(ctx, claims.UserID)
	if err != nil {
		return Pair{}, claims.UserID, err
	}
	if !ok || !s.digests.Matches(refreshToken, digest) {
		return Pair{}, claims.UserID, ErrRefreshMismatch
	}

	email, err := load(ctx, claims.UserID)
	if err != nil {
		return Pair{}, claims.UserID, err
	}

	pair, err := s.Start(ctx, claims.UserID, email)
	if err != nil {
		return Pair{}, claims.UserID, err
	}
	return pair, claims.UserID, nil
}

// Revoke deletes the session record of userID. Access tokens already issued
// remain valid until they expire.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	return s.registry.Delete(ctx, userID)
}

// VerifyAccess checks an access token against the access secret.
func (s *Service) VerifyAccess(tok string) (AccessClaims, error) {
	return s.tokens.VerifyAccess(tok, s.now())
}
