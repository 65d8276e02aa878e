package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hasher digests tokens with a fixed HMAC-SHA256 key.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher for key. Keys shorter than minBytes are rejected.
func NewHasher(key []byte, minBytes int) (Hasher, error) {
	if len(key) == 0 {
		return Hasher{}, ErrKeyMissing
	}
	if minBytes > 0 && len(key) < minBytes {
		return Hasher{}, ErrKeyTooShort
	}
	return Hasher{key: append([]byte(nil), key...)}, nil
}

// Digest returns the hex HMAC of tok.
func (h Hasher) Digest(tok string) string {
	return hex.EncodeToString(h.sum(tok))
}

// Matches reports whether tok hashes to digest. Malformed digests never match;
// the comparison of well-formed ones is constant time.
func (h Hasher) Matches(tok, digest string) bool {
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	return hmac.Equal(h.sum(tok), want)
}

func (h Hasher) sum(tok string) []byte {
	m := hmac.New(sha256.New, h.key)
	_, _ = m.Write([]byte(tok))
	return m.Sum(nil)
}
