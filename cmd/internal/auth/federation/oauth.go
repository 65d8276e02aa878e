package federation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"authsvc/cmd/identity"
)

const maxProfileBytes = 1 << 20

// ProviderConfig configures one OAuth provider. AuthURL, TokenURL and
// ProfileURL override the provider defaults (used by tests and proxies).
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	// HTTPClient is used for the token exchange and profile fetch when set.
	HTTPClient *http.Client
}

// Enabled reports whether client credentials are present.
func (c ProviderConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

type profileParser func(body []byte) (Profile, error)

// oauthProvider is the shared authorization-code flow: exchange the code with
// x/oauth2, fetch the profile with the resulting token, then parse it.
type oauthProvider struct {
	name       identity.Provider
	oauth      *oauth2.Config
	profileURL string
	httpClient *http.Client
	parse      profileParser
}

func newOAuthProvider(name identity.Provider, cfg ProviderConfig, endpoint oauth2.Endpoint, scopes []string, profileURL string, parse profileParser) *oauthProvider {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.ProfileURL != "" {
		profileURL = cfg.ProfileURL
	}
	return &oauthProvider{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		profileURL: profileURL,
		httpClient: cfg.HTTPClient,
		parse:      parse,
	}
}

func (p *oauthProvider) Name() identity.Provider { return p.name }

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	if strings.TrimSpace(code) == "" {
		return Profile{}, fmt.Errorf("%w: missing code", ErrExchange)
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s token exchange: %w", ErrExchange, p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s profile request: %w", ErrExchange, p.name, err)
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s profile fetch: %w", ErrExchange, p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s profile read: %w", ErrExchange, p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: %s profile status %d", ErrExchange, p.name, resp.StatusCode)
	}

	prof, err := p.parse(body)
	if errors.Is(err, ErrUnverifiedEmail) {
		return Profile{}, err
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s profile decode: %w", ErrExchange, p.name, err)
	}
	prof.Provider = p.name
	prof.Email = strings.TrimSpace(prof.Email)
	prof.Name = identity.NormalizeDisplayName(prof.Name)

	if prof.ProviderID == "" {
		return Profile{}, fmt.Errorf("%w: %s profile has no subject", ErrExchange, p.name)
	}
	if prof.Email == "" {
		return Profile{}, ErrMissingEmail
	}
	return prof, nil
}
