package session

import (
	"context"
	"time"
)

// Registry holds the single current refresh-token digest per identity.
//
// Put overwrites any previous record and sets its expiry. Get reports absent
// for missing and expired records alike. Backend failures wrap
// ErrRegistryUnavailable.
type Registry interface {
	Put(ctx context.Context, userID, digest string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (digest string, ok bool, err error)
	Delete(ctx context.Context, userID string) error
}

// KeyPrefix namespaces registry keys in shared stores.
const KeyPrefix = "refresh_token:"

// RegistryKey returns the storage key for userID.
func RegistryKey(userID string) string { return KeyPrefix + userID }
