package federation

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the federation surface loaded from the environment.
type Config struct {
	// PublicBaseURL is the externally visible origin used to build callback URLs.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3001"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookAppID      string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret  string `env:"FACEBOOK_APP_SECRET"`

	// SuccessRedirect receives ?token=<access>&refresh=<refresh> after a callback.
	SuccessRedirect string `env:"AUTH_SUCCESS_REDIRECT" envDefault:"/auth-success"`
	// FailureRedirect receives the browser when the handshake fails.
	FailureRedirect string `env:"AUTH_FAILURE_REDIRECT" envDefault:"/login"`
}

// LoadConfigFromEnv parses Config from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("federation config: %w", err)
	}
	if _, err := url.Parse(cfg.PublicBaseURL); err != nil {
		return Config{}, fmt.Errorf("federation config: PUBLIC_BASE_URL: %w", err)
	}
	return cfg, nil
}

// CallbackURL returns the redirect URI registered with provider name.
func (c Config) CallbackURL(name string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/auth/" + name + "/callback"
}

// BuildProviders returns the providers whose credentials are configured.
func (c Config) BuildProviders(httpClient *http.Client) *Providers {
	var ps []Provider

	google := ProviderConfig{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.CallbackURL("google"),
		HTTPClient:   httpClient,
	}
	if google.Enabled() {
		ps = append(ps, NewGoogle(google))
	}

	facebook := ProviderConfig{
		ClientID:     c.FacebookAppID,
		ClientSecret: c.FacebookAppSecret,
		RedirectURL:  c.CallbackURL("facebook"),
		HTTPClient:   httpClient,
	}
	if facebook.Enabled() {
		ps = append(ps, NewFacebook(facebook))
	}

	return NewProviders(ps...)
}
