package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authsvc/cmd/identity"
	"authsvc/cmd/internal/auth/federation"
	"authsvc/cmd/internal/auth/session"
	"authsvc/cmd/security/password"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingHasher records how often a stored hash is compared.
type countingHasher struct {
	identity.PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) VerifyPassword(plain, encoded string) (bool, error) {
	h.verifies.Add(1)
	return h.PasswordHasher.VerifyPassword(plain, encoded)
}

type fixture struct {
	svc      *Service
	store    *identity.InMemoryStore
	registry *session.MemoryRegistry
	sessions *session.Service
	hasher   *countingHasher
	clock    *fakeClock
}

func sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.AccessSecret = "access-secret-0123456789abcdef0123"
	cfg.RefreshSecret = "refresh-secret-0123456789abcdef012"
	return cfg
}

func fastPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	clock := &fakeClock{t: t0}
	store := identity.NewInMemoryStore()
	reg := session.NewMemoryRegistry(clock.Now)
	sessions, err := session.NewService(sessionConfig(), reg, session.WithClock(clock.Now))
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: identity.NewPasswordHasher(fastPasswordConfig())}

	opts = append([]Option{
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	svc, err := New(DefaultConfig(), store, sessions, hasher, opts...)
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, registry: reg, sessions: sessions, hasher: hasher, clock: clock}
}

func (f *fixture) register(t *testing.T, email string) Result {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: "password123!", Name: "Alice"})
	require.NoError(t, err)
	return res
}

func TestRegister_TokenMatchesStoredIdentity(t *testing.T) {
	f := newFixture(t)

	res := f.register(t, "alice@x.com")
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	stored, err := f.store.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, res.User.ID)
	assert.Equal(t, identity.ProviderLocal, stored.Provider)
	require.NotNil(t, stored.PasswordHash)
	assert.NotContains(t, *stored.PasswordHash, "password123!")

	claims, err := f.sessions.VerifyAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)

	me, err := f.svc.Me(context.Background(), claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", me.Email)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "alice@x.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "ALICE@x.com", Password: "another-pass-1", Name: "Impostor"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindConflict, KindOf(err))

	stored, err := f.store.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, stored.ID)
	assert.Equal(t, "Alice", stored.DisplayName)
	assert.Equal(t, *first.User.PasswordHash, *stored.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   RegisterInput
		code string
	}{
		{"missing email", RegisterInput{Password: "password123!", Name: "A"}, CodeInvalidRequest},
		{"missing password", RegisterInput{Email: "a@x.com", Name: "A"}, CodeInvalidRequest},
		{"missing name", RegisterInput{Email: "a@x.com", Password: "password123!", Name: "   "}, CodeInvalidRequest},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "password123!", Name: "A"}, CodeInvalidEmail},
		{"display form email", RegisterInput{Email: "A <a@x.com>", Password: "password123!", Name: "A"}, CodeInvalidEmail},
		{"short password", RegisterInput{Email: "a@x.com", Password: "short", Name: "A"}, CodeWeakPassword},
		{"weak password", RegisterInput{Email: "a@x.com", Password: "password", Name: "A"}, CodeWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, &Error{Kind: KindValidation, Code: tc.code})
		})
	}

	_, err := f.store.GetByEmail(context.Background(), "a@x.com")
	assert.True(t, identity.IsNotFound(err), "no record may be written on validation failure")
}

func TestLogin_FreshPairSameIdentity(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@x.com")

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@x.com", Password: "password123!"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.False(t, res.Created)
	assert.NotEqual(t, reg.Tokens.AccessToken, res.Tokens.AccessToken)
	assert.NotEqual(t, reg.Tokens.RefreshToken, res.Tokens.RefreshToken)

	_, err = f.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = f.svc.Refresh(context.Background(), res.Tokens.RefreshToken)
	assert.NoError(t, err)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@x.com")

	_, wrongPassword := f.svc.Login(context.Background(), LoginInput{Email: "alice@x.com", Password: "password123?"})
	_, unknownEmail := f.svc.Login(context.Background(), LoginInput{Email: "bob@x.com", Password: "password123!"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)

	var a, b *Error
	require.ErrorAs(t, wrongPassword, &a)
	require.ErrorAs(t, unknownEmail, &b)
	assert.Equal(t, a.Msg, b.Msg)
	assert.Equal(t, a.Code, b.Code)
	assert.NotContains(t, a.Error(), "password123")
}

func TestLogin_UnknownEmailStillVerifies(t *testing.T) {
	f := newFixture(t)
	before := f.hasher.verifies.Load()

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "ghost@x.com", Password: "whatever-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, before+1, f.hasher.verifies.Load())
}

func TestLogin_FederatedIdentityWrongProvider(t *testing.T) {
	f := newFixture(t)
	pid := "g-1"
	_, err := f.store.Create(context.Background(), identity.NewUser{
		Email:       "fed@x.com",
		DisplayName: "Fed",
		Provider:    identity.ProviderGoogle,
		ProviderID:  &pid,
		Now:         t0,
	})
	require.NoError(t, err)

	before := f.hasher.verifies.Load()
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "fed@x.com", Password: "password123!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongProvider)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Please login with google", e.Msg)
	assert.Equal(t, before, f.hasher.verifies.Load(), "no hash comparison for federated identities")
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin_UpgradesLegacyBcryptHash(t *testing.T) {
	f := newFixture(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("password123!"), bcrypt.MinCost)
	require.NoError(t, err)
	hash := string(legacy)
	u, err := f.store.Create(context.Background(), identity.NewUser{
		Email:        "old@x.com",
		DisplayName:  "Old",
		PasswordHash: &hash,
		Provider:     identity.ProviderLocal,
		Now:          t0,
	})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "old@x.com", Password: "password123!"})
	require.NoError(t, err)

	after, err := f.store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, after.PasswordHash)
	assert.Contains(t, *after.PasswordHash, "$argon2id$")

	_, err = f.svc.Login(context.Background(), LoginInput{Email: "old@x.com", Password: "password123!"})
	assert.NoError(t, err)
}

func TestRefresh_RotatesAndInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@x.com")

	next, err := f.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, reg.Tokens.RefreshToken, next.RefreshToken)

	claims, err := f.sessions.VerifyAccess(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "alice@x.com", claims.Email)

	_, err = f.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Refresh(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	// A live session whose identity record is gone.
	pair, err := f.sessions.Start(context.Background(), "01JGHOSTGHOSTGHOSTGHOSTGHO", "ghost@x.com")
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRefresh_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@x.com")

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout_RevokesRefreshOnly(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@x.com")

	require.NoError(t, f.svc.Logout(context.Background(), reg.User.ID))
	assert.Equal(t, 0, f.registry.Len())

	_, err := f.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = f.sessions.VerifyAccess(reg.Tokens.AccessToken)
	assert.NoError(t, err, "access token outlives logout until expiry")

	me, err := f.svc.Me(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", me.Email)

	// A revoked identity re-enters via login.
	_, err = f.svc.Login(context.Background(), LoginInput{Email: "alice@x.com", Password: "password123!"})
	assert.NoError(t, err)
}

func TestMe_UnknownIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Me(context.Background(), "01JNOPENOPENOPENOPENOPENOP")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFederate_CreatesThenReuses(t *testing.T) {
	f := newFixture(t)
	p := federation.Profile{Provider: identity.ProviderGoogle, ProviderID: "g-42", Email: "carol@x.com", Name: "Carol"}

	first, err := f.svc.Federate(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, identity.ProviderGoogle, first.User.Provider)
	assert.Nil(t, first.User.PasswordHash)
	assert.NotEmpty(t, first.Tokens.RefreshToken)

	second, err := f.svc.Federate(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = f.svc.Refresh(context.Background(), first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "second federation supersedes the first session")
}

func TestFederate_ExistingLocalIdentityIsReturnedUnchanged(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "alice@x.com")

	res, err := f.svc.Federate(context.Background(), federation.Profile{
		Provider: identity.ProviderFacebook, ProviderID: "fb-1", Email: "Alice@X.com", Name: "Alice F",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.Equal(t, identity.ProviderLocal, res.User.Provider)
}

func TestFederate_MissingEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Federate(context.Background(), federation.Profile{Provider: identity.ProviderFacebook, ProviderID: "fb-2"})
	assert.ErrorIs(t, err, ErrFederation)
	assert.ErrorIs(t, err, federation.ErrMissingEmail)
}

type brokenRegistry struct{}

func (brokenRegistry) Put(context.Context, string, string, time.Duration) error {
	return fmt.Errorf("session: put: %w: %w", session.ErrRegistryUnavailable, errors.New("connection refused"))
}

func (brokenRegistry) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("session: get: %w: %w", session.ErrRegistryUnavailable, errors.New("connection refused"))
}

func (brokenRegistry) Delete(context.Context, string) error {
	return fmt.Errorf("session: del: %w: %w", session.ErrRegistryUnavailable, errors.New("connection refused"))
}

func TestRegistryFailureIsTransient(t *testing.T) {
	store := identity.NewInMemoryStore()
	sessions, err := session.NewService(sessionConfig(), brokenRegistry{})
	require.NoError(t, err)
	svc, err := New(DefaultConfig(), store, sessions, identity.NewPasswordHasher(fastPasswordConfig()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "password123!", Name: "A"})
	assert.ErrorIs(t, err, ErrTransient)

	_, err = svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "password123!"})
	assert.ErrorIs(t, err, ErrTransient)
	assert.NotErrorIs(t, err, ErrAuthentication)

	assert.ErrorIs(t, svc.Logout(context.Background(), "someone"), ErrTransient)
}

// stallingStore blocks lookups until the caller's deadline.
type stallingStore struct {
	*identity.InMemoryStore
}

func (stallingStore) GetByEmail(ctx context.Context, _ string) (identity.User, error) {
	<-ctx.Done()
	return identity.User{}, ctx.Err()
}

func TestStoreTimeoutIsTransient(t *testing.T) {
	reg := session.NewMemoryRegistry(nil)
	sessions, err := session.NewService(sessionConfig(), reg)
	require.NoError(t, err)
	svc, err := New(Config{StoreTimeout: 20 * time.Millisecond}, stallingStore{identity.NewInMemoryStore()}, sessions,
		identity.NewPasswordHasher(fastPasswordConfig()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "password123!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}
