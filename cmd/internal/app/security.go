package app

import (
	"errors"
	"fmt"
	"strings"

	"authsvc/cmd/internal/auth/session"
)

// placeholderSecrets are sample values that shipped in old env templates.
var placeholderSecrets = []string{
	"your-secret-key-change-in-production",
	"your-refresh-secret-key",
	"changeme",
	"secret",
}

// ValidateSecurityConfig enforces the signing-secret policy at startup.
// Startup fails rather than running with a guessable or shared secret.
func ValidateSecurityConfig(cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("security policy: %w", err)
	}

	for _, s := range []struct{ name, val string }{
		{"JWT_SECRET", cfg.AccessSecret},
		{"JWT_REFRESH_SECRET", cfg.RefreshSecret},
	} {
		if isPlaceholderSecret(s.val) {
			return fmt.Errorf("security policy: %s is a sample value", s.name)
		}
		if strings.TrimSpace(s.val) != s.val {
			return fmt.Errorf("security policy: %s has surrounding whitespace", s.name)
		}
	}

	if strings.EqualFold(cfg.AccessSecret, cfg.RefreshSecret) {
		return errors.New("security policy: JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}

func isPlaceholderSecret(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range placeholderSecrets {
		if v == p {
			return true
		}
	}
	return false
}
