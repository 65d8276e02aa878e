package token

import "errors"

// Key policy errors returned by NewHasher.
var (
	ErrKeyMissing  = errors.New("token: digest key is empty")
	ErrKeyTooShort = errors.New("token: digest key is shorter than required")
)
