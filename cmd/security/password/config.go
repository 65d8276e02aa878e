package password

import (
	"fmt"
	"runtime"

	"github.com/caarlos0/env/v11"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB"`
	Iterations  uint32 `env:"ARGON2_ITERATIONS"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"ARGON2_SALT_LEN"`
	KeyLength   uint32 `env:"ARGON2_KEY_LEN"`
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int `env:"PASSWORD_MIN_LENGTH"`
	MaxLength int `env:"PASSWORD_MAX_LENGTH"`
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool `env:"PASSWORD_REJECT_VERY_WEAK"`
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used for interactive logins.
// Values can be overridden via env.
func DefaultConfig() Config {
	// Clamp to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,      // 64 MiB
			Iterations:  3,              // tens of milliseconds per verify on commodity hosts
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      8,
			MaxLength:      256,
			RejectVeryWeak: true,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
// - PASSWORD_MIN_LENGTH
// - PASSWORD_MAX_LENGTH
// - PASSWORD_REJECT_VERY_WEAK (true/false)
// - ARGON2_MEMORY_KIB
// - ARGON2_ITERATIONS
// - ARGON2_PARALLELISM
// - ARGON2_SALT_LEN
// - ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	checks := []struct {
		name     string
		val      uint64
		min, max uint64
	}{
		{"PASSWORD_MIN_LENGTH", uint64(max(c.Policy.MinLength, 0)), 1, 1024},
		{"PASSWORD_MAX_LENGTH", uint64(max(c.Policy.MaxLength, 0)), 1, 4096},
		{"ARGON2_MEMORY_KIB", uint64(c.Params.MemoryKiB), 8 * 1024, 1024 * 1024}, // 8 MiB .. 1 GiB
		{"ARGON2_ITERATIONS", uint64(c.Params.Iterations), 1, 20},
		{"ARGON2_PARALLELISM", uint64(c.Params.Parallelism), 1, 64},
		{"ARGON2_SALT_LEN", uint64(c.Params.SaltLength), 8, 64},
		{"ARGON2_KEY_LEN", uint64(c.Params.KeyLength), 16, 64},
	}
	for _, ch := range checks {
		if ch.val < ch.min || ch.val > ch.max {
			return fmt.Errorf("%w: %s out of range [%d..%d]", ErrInvalidConfig, ch.name, ch.min, ch.max)
		}
	}

	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"%w: min_len(%d) > max_len(%d)",
			ErrInvalidConfig,
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	return nil
}
