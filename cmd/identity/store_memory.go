package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a dev/test Store used when no database is configured.
// Data lives for the lifetime of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string // email_norm -> id
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new user. A taken email maps to ConflictError{Field: "email"}.
func (s *InMemoryStore) Create(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	u, err := buildUser(op, in)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.EmailNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	s.byID[u.ID] = cloneUser(u)
	s.byEmail[u.EmailNorm] = u.ID
	return u, nil
}

// GetByEmail looks a user up by normalized email.
func (s *InMemoryStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[norm]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(s.byID[id]), nil
}

// GetByID looks a user up by id.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "id is required"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(u), nil
}

// UpdatePasswordHash replaces the password hash of a local user.
func (s *InMemoryStore) UpdatePasswordHash(ctx context.Context, id string, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || hash == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "id and hash are required"}
	}
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.Provider != ProviderLocal {
		return NotFoundError{Op: op, Resource: "user"}
	}
	h := hash
	u.PasswordHash = &h
	u.UpdatedAt = now.UTC()
	s.byID[id] = u
	return nil
}

// cloneUser detaches pointer fields so callers cannot mutate stored state.
func cloneUser(u User) User {
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		u.PasswordHash = &h
	}
	if u.ProviderID != nil {
		p := *u.ProviderID
		u.ProviderID = &p
	}
	return u
}
