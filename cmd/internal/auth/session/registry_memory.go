package session

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for development and tests.
// Records carry an explicit expiry that is checked on every read.
type MemoryRegistry struct {
	mu   sync.Mutex
	now  func() time.Time
	recs map[string]memRecord
}

type memRecord struct {
	digest    string
	expiresAt time.Time
}

// NewMemoryRegistry returns an empty registry reading time from now
// (time.Now when nil).
func NewMemoryRegistry(now func() time.Time) *MemoryRegistry {
	if now == nil {
		now = time.Now
	}
	return &MemoryRegistry{now: now, recs: make(map[string]memRecord)}
}

func (r *MemoryRegistry) Put(ctx context.Context, userID, digest string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recs[RegistryKey(userID)] = memRecord{digest: digest, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, userID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, unavailable("get", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := RegistryKey(userID)
	rec, ok := r.recs[key]
	if !ok {
		return "", false, nil
	}
	if !r.now().Before(rec.expiresAt) {
		delete(r.recs, key)
		return "", false, nil
	}
	return rec.digest, true, nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.recs, RegistryKey(userID))
	return nil
}

// Len returns the number of stored records, expired or not.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}
