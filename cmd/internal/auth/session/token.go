package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authsvc/cmd/identity/ids"
)

// TokenType distinguishes access from refresh tokens inside the claim set.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// AccessClaims is the identity envelope exposed to protected handlers.
type AccessClaims struct {
	UserID    string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string    `json:"id"`
	Email  string    `json:"email,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 tokens with one secret per token kind.
// Minting has no side effects.
type TokenManager struct {
	issuer     string
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	skew       time.Duration
}

// NewTokenManager builds a TokenManager from a validated Config.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{
		issuer:     cfg.Issuer,
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		skew:       cfg.ClockSkew,
	}, nil
}

// IssueAccess mints an access token for userID/email valid from now.
func (m *TokenManager) IssueAccess(userID, email string, now time.Time) (string, time.Time, error) {
	return m.sign(m.accessKey, tokenClaims{UserID: userID, Email: email, Type: TypeAccess}, now, m.accessTTL)
}

// IssueRefresh mints a refresh token for userID valid from now.
func (m *TokenManager) IssueRefresh(userID string, now time.Time) (string, time.Time, error) {
	return m.sign(m.refreshKey, tokenClaims{UserID: userID, Type: TypeRefresh}, now, m.refreshTTL)
}

func (m *TokenManager) sign(key []byte, c tokenClaims, now time.Time, ttl time.Duration) (string, time.Time, error) {
	// jti keeps two pairs minted within the same second distinct.
	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	exp := now.Add(ttl)
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   c.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        jti,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate has second precision; report what the token actually carries.
	return signed, c.ExpiresAt.Time, nil
}

// VerifyAccess checks signature, expiry and type of an access token.
func (m *TokenManager) VerifyAccess(tok string, now time.Time) (AccessClaims, error) {
	c, err := m.parse(tok, m.accessKey, TypeAccess, now)
	if err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{
		UserID:    c.UserID,
		Email:     c.Email,
		TokenID:   c.ID,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks signature, expiry and type of a refresh token.
// It does not consult the registry.
func (m *TokenManager) VerifyRefresh(tok string, now time.Time) (RefreshClaims, error) {
	c, err := m.parse(tok, m.refreshKey, TypeRefresh, now)
	if err != nil {
		return RefreshClaims{}, err
	}
	return RefreshClaims{
		UserID:    c.UserID,
		TokenID:   c.ID,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (m *TokenManager) parse(tok string, key []byte, want TokenType, now time.Time) (*tokenClaims, error) {
	if tok == "" {
		return nil, ErrInvalidToken
	}

	// Build a fresh parser per call so the injected time is per-verify.
	p := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(m.skew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(m.issuer),
	)

	var c tokenClaims
	parsed, err := p.ParseWithClaims(tok, &c, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if c.Type != want || c.UserID == "" || c.UserID != c.Subject {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
