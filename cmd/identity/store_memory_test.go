package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_CreateAndLookup(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	u, err := s.Create(ctx, NewUser{
		Email:        "Alice@X.com",
		DisplayName:  "Alice",
		PasswordHash: strPtr("hash"),
		Provider:     ProviderLocal,
	})
	require.NoError(t, err)

	byEmail, err := s.GetByEmail(ctx, "alice@x.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice@X.com", byID.Email)

	// Returned copies do not alias stored state.
	*byID.PasswordHash = "tampered"
	again, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", *again.PasswordHash)
}

func TestInMemoryStore_DuplicateEmailAcrossProviders(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first, err := s.Create(ctx, NewUser{
		Email:        "alice@x.com",
		DisplayName:  "Alice",
		PasswordHash: strPtr("hash"),
		Provider:     ProviderLocal,
	})
	require.NoError(t, err)

	_, err = s.Create(ctx, NewUser{
		Email:       "ALICE@x.com",
		DisplayName: "Other",
		Provider:    ProviderGoogle,
		ProviderID:  strPtr("g1"),
	})
	assert.True(t, IsConflict(err))

	got, err := s.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestInMemoryStore_ConcurrentCreateSingleWinner(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, confl int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, NewUser{
				Email:        "race@x.com",
				PasswordHash: strPtr("hash"),
				Provider:     ProviderLocal,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if IsConflict(err) {
				confl++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, confl)
}

func TestInMemoryStore_UpdatePasswordHash(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	local, err := s.Create(ctx, NewUser{Email: "l@x.com", PasswordHash: strPtr("old"), Provider: ProviderLocal})
	require.NoError(t, err)
	fed, err := s.Create(ctx, NewUser{Email: "f@x.com", Provider: ProviderFacebook, ProviderID: strPtr("fb")})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePasswordHash(ctx, local.ID, "new", later))
	got, err := s.GetByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", *got.PasswordHash)
	assert.Equal(t, later, got.UpdatedAt)

	assert.True(t, IsNotFound(s.UpdatePasswordHash(ctx, fed.ID, "new", later)))
	assert.True(t, IsNotFound(s.UpdatePasswordHash(ctx, "nope", "new", later)))
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.Canceled)
}
