package identity

import (
	"context"
	"strings"
	"time"

	"authsvc/cmd/identity/ids"
)

// Provider tags how a user proves identity.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// ParseProvider maps a name tag to a Provider. Unknown names report false.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderLocal, ProviderGoogle, ProviderFacebook:
		return p, true
	default:
		return "", false
	}
}

// Federated reports whether p is an external identity provider.
func (p Provider) Federated() bool {
	return p == ProviderGoogle || p == ProviderFacebook
}

// User is the service's canonical security principal.
type User struct {
	ID          string
	Email       string
	EmailNorm   string
	DisplayName string

	// PasswordHash is nil for federated users.
	PasswordHash *string
	Provider     Provider
	ProviderID   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether u can log in with a local password.
func (u User) HasPassword() bool {
	return u.Provider == ProviderLocal && u.PasswordHash != nil && *u.PasswordHash != ""
}

// NewUser describes a user to create. The store assigns ID and timestamps.
type NewUser struct {
	Email        string
	DisplayName  string
	PasswordHash *string
	Provider     Provider
	ProviderID   *string
	Now          time.Time
}

// Validate enforces the record invariants before any write.
func (in NewUser) Validate(op string) error {
	if strings.TrimSpace(in.Email) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	switch in.Provider {
	case ProviderLocal:
		if in.PasswordHash == nil || *in.PasswordHash == "" {
			return OpError{Op: op, Kind: ErrInvalidInput, Msg: "local user requires a password hash"}
		}
		if in.ProviderID != nil {
			return OpError{Op: op, Kind: ErrInvalidInput, Msg: "local user cannot carry a provider id"}
		}
	case ProviderGoogle, ProviderFacebook:
		if in.PasswordHash != nil {
			return OpError{Op: op, Kind: ErrInvalidInput, Msg: "federated user cannot carry a password hash"}
		}
		if in.ProviderID == nil || strings.TrimSpace(*in.ProviderID) == "" {
			return OpError{Op: op, Kind: ErrInvalidInput, Msg: "federated user requires a provider id"}
		}
	default:
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown provider"}
	}
	return nil
}

// Store is the credential persistence boundary.
//
// Lookups that match nothing return NotFoundError. Create returns ConflictError
// with Field "email" when the normalized email is taken, regardless of provider.
type Store interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, in NewUser) (User, error)

	// UpdatePasswordHash replaces the hash of a local user.
	UpdatePasswordHash(ctx context.Context, id string, hash string, now time.Time) error
}

func buildUser(op string, in NewUser) (User, error) {
	if err := in.Validate(op); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	// Postgres stores microseconds.
	now = now.UTC().Truncate(time.Microsecond)

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	email := strings.TrimSpace(in.Email)
	return User{
		ID:           id,
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		DisplayName:  NormalizeDisplayName(in.DisplayName),
		PasswordHash: in.PasswordHash,
		Provider:     in.Provider,
		ProviderID:   in.ProviderID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
