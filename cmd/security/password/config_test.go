package password

import (
	"errors"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"PASSWORD_MIN_LENGTH",
		"PASSWORD_MAX_LENGTH",
		"PASSWORD_REJECT_VERY_WEAK",
		"ARGON2_MEMORY_KIB",
		"ARGON2_ITERATIONS",
		"ARGON2_PARALLELISM",
		"ARGON2_SALT_LEN",
		"ARGON2_KEY_LEN",
	} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy.MinLength != def.Policy.MinLength {
		t.Fatalf("min length mismatch: got %d want %d", cfg.Policy.MinLength, def.Policy.MinLength)
	}
	if cfg.Params.MemoryKiB != def.Params.MemoryKiB {
		t.Fatalf("memory mismatch")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("PASSWORD_MIN_LENGTH", "10")
	t.Setenv("PASSWORD_MAX_LENGTH", "200")
	t.Setenv("PASSWORD_REJECT_VERY_WEAK", "false")
	t.Setenv("ARGON2_MEMORY_KIB", "32768")
	t.Setenv("ARGON2_ITERATIONS", "4")
	t.Setenv("ARGON2_PARALLELISM", "2")
	t.Setenv("ARGON2_SALT_LEN", "24")
	t.Setenv("ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 || cfg.Policy.RejectVeryWeak {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("PASSWORD_MIN_LENGTH", "20")
	t.Setenv("PASSWORD_MAX_LENGTH", "10")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromEnv_OutOfRange(t *testing.T) {
	t.Setenv("ARGON2_ITERATIONS", "99")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromEnv_NotANumber(t *testing.T) {
	t.Setenv("ARGON2_MEMORY_KIB", "lots")

	_, err := FromEnv()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
