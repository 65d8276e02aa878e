// Package ids mints the sortable identifiers used for user ids and token ids.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a 26-char ULID stamped with now (current time when zero).
// Ids minted within the same millisecond sort in minting order.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now()
	}

	mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now.UTC()), entropy)
	mu.Unlock()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
