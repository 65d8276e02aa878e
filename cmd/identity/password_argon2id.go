// Package identity password hashing (Argon2id).
//
// cmd/security/password is the single source of truth for:
//   - Argon2id parameters (defaults + env overrides)
//   - password policy (defaults + env overrides)
//   - strict PHC decoding + anti-DoS bounds during Verify
//
// identity keeps a baseline of min length 8 regardless of env policy.
package identity

import (
	"errors"

	"authsvc/cmd/security/password"
)

const minPasswordLength = 8

// PasswordHasher hashes and verifies local credentials.
type PasswordHasher struct {
	cfg password.Config
}

// NewPasswordHasher returns a hasher for cfg, tightening the policy to the
// identity baseline when cfg is looser.
func NewPasswordHasher(cfg password.Config) PasswordHasher {
	if cfg.Policy.MinLength < minPasswordLength {
		cfg.Policy.MinLength = minPasswordLength
	}
	if cfg.Policy.MaxLength <= 0 {
		cfg.Policy.MaxLength = 256
	}
	return PasswordHasher{cfg: cfg}
}

// HashPassword validates plain against the policy and returns a PHC-style Argon2id hash.
// Policy failures are OpError with Kind ErrInvalidInput.
func (h PasswordHasher) HashPassword(plain string) (string, error) {
	const op = "identity.HashPassword"

	enc, err := h.cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: "password too short"}
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: "password too long"}
		case errors.Is(err, password.ErrWeakPassword):
			return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: "password too weak"}
		default:
			return "", err
		}
	}
	return enc, nil
}

// VerifyPassword checks plain against an encoded hash (Argon2id or legacy bcrypt).
// A malformed hash reports (false, err); a mismatch reports (false, nil).
func (h PasswordHasher) VerifyPassword(plain string, encoded string) (bool, error) {
	ok, err := h.cfg.Verify(encoded, plain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			return false, errors.New("identity: unsupported password hash format")
		}
		return false, err
	}
	return ok, nil
}

// NeedsRehash reports whether encoded should be upgraded after a successful login.
func (h PasswordHasher) NeedsRehash(encoded string) bool {
	return h.cfg.NeedsRehash(encoded)
}

// MinLength returns the effective minimum password length.
func (h PasswordHasher) MinLength() int { return h.cfg.Policy.MinLength }
