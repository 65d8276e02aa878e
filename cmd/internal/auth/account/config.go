package account

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls account orchestration.
type Config struct {
	// StoreTimeout bounds each credential store or session registry round trip.
	// Zero disables the per-call deadline and leaves only the caller's.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{StoreTimeout: 3 * time.Second}
}

// LoadConfigFromEnv overlays STORE_TIMEOUT on DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("account config: %w", err)
	}
	if cfg.StoreTimeout < 0 {
		return Config{}, fmt.Errorf("account config: STORE_TIMEOUT must not be negative")
	}
	return cfg, nil
}
