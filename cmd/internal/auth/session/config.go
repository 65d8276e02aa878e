package session

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretBytes is the minimum length of each signing secret.
const MinSecretBytes = 32

// Config defines all runtime configuration for the session subsystem.
//
// It controls token lifetimes, the clock skew tolerated during verification,
// and the two HS256 signing secrets.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token kinds.
	Issuer string `env:"AUTH_ISSUER"`

	// AccessSecret signs access tokens; RefreshSecret signs refresh tokens and
	// keys the registry digests. They must differ.
	AccessSecret  string `env:"JWT_SECRET"`
	RefreshSecret string `env:"JWT_REFRESH_SECRET"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL"`

	// ClockSkew is the leeway applied to exp checks. Zero means none.
	ClockSkew time.Duration `env:"TOKEN_CLOCK_SKEW"`
}

// DefaultConfig returns defaults without secrets.
func DefaultConfig() Config {
	return Config{
		Issuer:          "authsvc",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ClockSkew:       0,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - JWT_SECRET
//   - JWT_REFRESH_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - AUTH_ISSUER
//   - ACCESS_TOKEN_TTL
//   - REFRESH_TOKEN_TTL
//   - TOKEN_CLOCK_SKEW
//
// Returns an error wrapping ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks secrets and lifetimes.
func (c Config) Validate() error {
	switch {
	case c.AccessSecret == "" || c.RefreshSecret == "":
		return fmt.Errorf("%w: JWT_SECRET and JWT_REFRESH_SECRET are required", ErrConfig)
	case len(c.AccessSecret) < MinSecretBytes || len(c.RefreshSecret) < MinSecretBytes:
		return fmt.Errorf("%w: signing secrets must be at least %d bytes", ErrConfig, MinSecretBytes)
	case c.AccessSecret == c.RefreshSecret:
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	case c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0:
		return fmt.Errorf("%w: token ttl must be positive", ErrConfig)
	case c.RefreshTokenTTL <= c.AccessTokenTTL:
		return fmt.Errorf("%w: refresh ttl must exceed access ttl", ErrConfig)
	case c.ClockSkew < 0:
		return fmt.Errorf("%w: clock skew must not be negative", ErrConfig)
	}
	return nil
}
