package federation

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sort"

	"authsvc/cmd/identity"
)

// Profile is a verified external identity returned by a provider handshake.
type Profile struct {
	Provider   identity.Provider
	ProviderID string
	Email      string
	Name       string
}

// Provider performs the OAuth handshake for one identity provider.
type Provider interface {
	Name() identity.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

// Providers selects a Provider by its name tag.
type Providers struct {
	byName map[string]Provider
}

// NewProviders indexes ps by name. Later duplicates replace earlier ones.
func NewProviders(ps ...Provider) *Providers {
	m := make(map[string]Provider, len(ps))
	for _, p := range ps {
		if p == nil {
			continue
		}
		m[string(p.Name())] = p
	}
	return &Providers{byName: m}
}

// Get returns the provider registered under name.
func (p *Providers) Get(name string) (Provider, error) {
	if p == nil {
		return nil, ErrUnknownProvider
	}
	prov, ok := p.byName[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return prov, nil
}

// Names returns the configured provider names, sorted.
func (p *Providers) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.byName))
	for n := range p.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewState returns a random URL-safe value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// StateMatches compares two state values in constant time. Empty never matches.
func StateMatches(issued, returned string) bool {
	if issued == "" || returned == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(issued), []byte(returned)) == 1
}
