package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryRegistry, *fakeClock) {
	t.Helper()
	clock := newFakeClock(t0)
	reg := NewMemoryRegistry(clock.Now)
	svc, err := NewService(testConfig(), reg, WithClock(clock.Now))
	require.NoError(t, err)
	return svc, reg, clock
}

func loadEmail(email string) Loader {
	return func(context.Context, string) (string, error) { return email, nil }
}

func TestService_StartThenVerify(t *testing.T) {
	svc, reg, clock := newTestService(t)

	pair, err := svc.Start(context.Background(), "user-1", "alice@x.com")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 1, reg.Len())

	c, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "alice@x.com", c.Email)

	clock.Advance(15*time.Minute + time.Second)
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RegistryStoresDigestNotToken(t *testing.T) {
	svc, reg, _ := newTestService(t)

	pair, err := svc.Start(context.Background(), "user-1", "a@x.com")
	require.NoError(t, err)

	stored, ok, err := reg.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, pair.RefreshToken, stored)
	assert.Len(t, stored, 64)
}

func TestService_RotateInvalidatesPrevious(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, uid, err := svc.Rotate(ctx, first.RefreshToken, loadEmail("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	_, _, err = svc.Rotate(ctx, first.RefreshToken, loadEmail("a@x.com"))
	assert.ErrorIs(t, err, ErrRefreshMismatch)

	third, _, err := svc.Rotate(ctx, second.RefreshToken, loadEmail("a@x.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, third.RefreshToken)
}

func TestService_NewLoginSupersedesOldRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	old, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, old.RefreshToken, loadEmail("a@x.com"))
	assert.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestService_RevokeKeepsAccessValid(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "user-1"))
	assert.Equal(t, 0, reg.Len())

	_, _, err = svc.Rotate(ctx, pair.RefreshToken, loadEmail("a@x.com"))
	assert.ErrorIs(t, err, ErrRefreshMismatch)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.NoError(t, err)
}

func TestService_RotateRejectsAccessTokenAndExpiredRefresh(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, pair.AccessToken, loadEmail("a@x.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(7*24*time.Hour + time.Second)
	_, _, err = svc.Rotate(ctx, pair.RefreshToken, loadEmail("a@x.com"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RotateLoaderErrorLeavesSessionUntouched(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	gone := errors.New("identity gone")

	pair, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)

	_, uid, err := svc.Rotate(ctx, pair.RefreshToken, func(context.Context, string) (string, error) {
		return "", gone
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, "user-1", uid)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken, loadEmail("a@x.com"))
	assert.NoError(t, err)
}

type failingRegistry struct{ Registry }

func (failingRegistry) Put(context.Context, string, string, time.Duration) error {
	return unavailable("put", context.DeadlineExceeded)
}

func TestService_StartRegistryFailure(t *testing.T) {
	svc, err := NewService(testConfig(), failingRegistry{NewMemoryRegistry(nil)})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), "user-1", "a@x.com")
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_ConcurrentRotateSingleSurvivor(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	start, err := svc.Start(ctx, "user-1", "a@x.com")
	require.NoError(t, err)

	const n = 8
	pairs := make([]Pair, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := svc.Rotate(ctx, start.RefreshToken, loadEmail("a@x.com"))
			if err == nil {
				pairs[i] = p
			}
		}(i)
	}
	wg.Wait()

	stored, ok, err := reg.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	survivors := 0
	for _, p := range pairs {
		if p.RefreshToken != "" && svc.digests.Matches(p.RefreshToken, stored) {
			survivors++
		}
	}
	assert.Equal(t, 1, survivors)
}

func TestNewService_RequiresRegistryAndSecrets(t *testing.T) {
	_, err := NewService(testConfig(), nil)
	assert.Error(t, err)

	bad := testConfig()
	bad.RefreshSecret = bad.AccessSecret
	_, err = NewService(bad, NewMemoryRegistry(nil))
	assert.ErrorIs(t, err, ErrConfig)
}
