package authapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AUTH_TRUST_PROXY", "true")
	t.Setenv("AUTH_RATE_LIMIT_RPS", "0.5")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "3")
	t.Setenv("AUTH_STATE_TTL", "2m")
	t.Setenv("AUTH_COOKIE_SECURE", "false")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)
	assert.InDelta(t, 0.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.Equal(t, 2*time.Minute, cfg.StateTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "authsvc_oauth_state", cfg.StateCookieName)
}

func TestLoadConfigFromEnv_Guardrails(t *testing.T) {
	t.Setenv("AUTH_MAX_BODY_BYTES", "-1")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "0")
	t.Setenv("AUTH_STATE_TTL", "0s")
	t.Setenv("AUTH_STATE_COOKIE_NAME", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.MaxBodyBytes, cfg.MaxBodyBytes)
	assert.Equal(t, def.RateLimitBurst, cfg.RateLimitBurst)
	assert.Equal(t, def.StateTTL, cfg.StateTTL)
	assert.Equal(t, def.StateCookieName, cfg.StateCookieName)
}

func TestLoadConfigFromEnv_RejectsMalformed(t *testing.T) {
	t.Setenv("AUTH_STATE_TTL", "ten minutes")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}
