package federation

import (
	"context"
	"strings"
	"time"

	"authsvc/cmd/identity"
)

// Resolver links provider profiles to local users.
type Resolver struct {
	store identity.Store
	now   func() time.Time
}

// NewResolver returns a Resolver over store. now defaults to time.Now.
func NewResolver(store identity.Store, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now}
}

// Resolve returns the user owning p.Email, creating a federated user on first
// sight. An existing user is returned unchanged even when its provider differs
// from p.Provider. created reports whether a new record was written.
func (r *Resolver) Resolve(ctx context.Context, p Profile) (u identity.User, created bool, err error) {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return identity.User{}, false, ErrMissingEmail
	}

	u, err = r.store.GetByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !identity.IsNotFound(err) {
		return identity.User{}, false, err
	}

	providerID := p.ProviderID
	u, err = r.store.Create(ctx, identity.NewUser{
		Email:       email,
		DisplayName: p.Name,
		Provider:    p.Provider,
		ProviderID:  &providerID,
		Now:         r.now(),
	})
	if err == nil {
		return u, true, nil
	}

	// Lost a race with a concurrent first login for the same email.
	if identity.IsConflict(err) {
		u, err = r.store.GetByEmail(ctx, email)
		if err != nil {
			return identity.User{}, false, err
		}
		return u, false, nil
	}
	return identity.User{}, false, err
}
