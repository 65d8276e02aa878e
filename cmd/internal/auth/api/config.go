package authapi

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls HTTP auth API behavior and security defaults.
type Config struct {
	// TrustProxy makes clientIP honor X-Forwarded-For and X-Real-IP.
	TrustProxy   bool  `env:"AUTH_TRUST_PROXY"`
	MaxBodyBytes int64 `env:"AUTH_MAX_BODY_BYTES"`

	// Per-client-IP token bucket on register, login and refresh-token.
	// RateLimitRPS <= 0 disables limiting.
	RateLimitRPS   float64       `env:"AUTH_RATE_LIMIT_RPS"`
	RateLimitBurst int           `env:"AUTH_RATE_LIMIT_BURST"`
	RateLimitIdle  time.Duration `env:"AUTH_RATE_LIMIT_IDLE"`

	// OAuth state cookie used only during the provider handshake.
	StateCookieName string        `env:"AUTH_STATE_COOKIE_NAME"`
	StateTTL        time.Duration `env:"AUTH_STATE_TTL"`
	CookieSecure    bool          `env:"AUTH_COOKIE_SECURE"`
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:    1 << 20, // 1 MiB
		RateLimitRPS:    1,
		RateLimitBurst:  10,
		RateLimitIdle:   10 * time.Minute,
		StateCookieName: "authsvc_oauth_state",
		StateTTL:        10 * time.Minute,
		CookieSecure:    true,
	}
}

// LoadConfigFromEnv loads auth API config from environment variables on top of DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("auth api config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps values that would disable a protection by accident.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = def.RateLimitBurst
	}
	if c.RateLimitIdle <= 0 {
		c.RateLimitIdle = def.RateLimitIdle
	}
	if c.StateCookieName == "" {
		c.StateCookieName = def.StateCookieName
	}
	if c.StateTTL <= 0 {
		c.StateTTL = def.StateTTL
	}
}
