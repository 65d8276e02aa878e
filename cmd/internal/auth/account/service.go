package account

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"authsvc/cmd/identity"
	"authsvc/cmd/internal/auth/federation"
	"authsvc/cmd/internal/auth/session"
	"authsvc/cmd/internal/metrics"
)

// Sessions is the token issuer and session registry surface. *session.Service satisfies it.
type Sessions interface {
	Start(ctx context.Context, userID, email string) (session.Pair, error)
	Rotate(ctx context.Context, refreshToken string, load session.Loader) (session.Pair, string, error)
	Revoke(ctx context.Context, userID string) error
}

// Hasher hashes and verifies local credentials. identity.PasswordHasher satisfies it.
type Hasher interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain string, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// Resolver maps provider profiles to local users. *federation.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, p federation.Profile) (identity.User, bool, error)
}

// RegisterInput is a local sign-up request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput is a local password login request.
type LoginInput struct {
	Email    string
	Password string
}

// Result is an authenticated identity with its freshly issued token pair.
type Result struct {
	User    identity.User
	Tokens  session.Pair
	Created bool
}

// Service implements the account operations on top of injected collaborators.
type Service struct {
	cfg      Config
	store    identity.Store
	sessions Sessions
	hasher   Hasher
	resolver Resolver

	log     *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time

	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to metrics.Nop.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithResolver overrides the federation resolver built over the store.
func WithResolver(r Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(cfg Config, store identity.Store, sessions Sessions, hasher Hasher, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("account: nil store")
	case sessions == nil:
		return nil, errors.New("account: nil sessions")
	case hasher == nil:
		return nil, errors.New("account: nil hasher")
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		log:      slog.Default(),
		metrics:  metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.resolver == nil {
		s.resolver = federation.NewResolver(store, s.now)
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := hasher.HashPassword("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s, nil
}

// Register creates a local identity and starts its session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	const op, name = "account.Register", "register"

	email := strings.TrimSpace(in.Email)
	displayName := identity.NormalizeDisplayName(in.Name)
	if email == "" || in.Password == "" || displayName == "" {
		return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindValidation, Code: CodeInvalidRequest, Msg: "Email, password, and name are required"})
	}
	if !validEmail(email) {
		return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindValidation, Code: CodeInvalidEmail, Msg: "Email address is invalid"})
	}

	// Cheap existence check before spending a hash. Create still enforces uniqueness.
	_, err := s.getByEmail(ctx, email)
	switch {
	case err == nil:
		return Result{}, s.fail(ctx, name, emailTaken(op, nil))
	case !identity.IsNotFound(err):
		return Result{}, s.fail(ctx, name, storeError(op, err))
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		var oe identity.OpError
		if errors.As(err, &oe) && errors.Is(oe.Kind, identity.ErrInvalidInput) {
			return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindValidation, Code: CodeWeakPassword, Msg: capitalize(oe.Msg), Err: err})
		}
		return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindTransient, Code: CodeUnavailable, Msg: "Internal server error", Err: err})
	}

	u, err := s.create(ctx, identity.NewUser{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: &hash,
		Provider:     identity.ProviderLocal,
		Now:          s.now(),
	})
	if err != nil {
		if identity.IsConflict(err) {
			return Result{}, s.fail(ctx, name, emailTaken(op, err))
		}
		return Result{}, s.fail(ctx, name, storeError(op, err))
	}

	pair, err := s.start(ctx, name, u)
	if err != nil {
		return Result{}, s.fail(ctx, name, sessionError(op, err))
	}

	s.succeed(ctx, name, "user_id", u.ID)
	return Result{User: u, Tokens: pair, Created: true}, nil
}

// Login authenticates a local identity by password and starts a new session,
// superseding any previous refresh token of that identity.
//
// Unknown email and wrong password are indistinguishable to the caller. A
// federated identity fails with CodeWrongProvider before any hash comparison.
func (s *Service) Login(ctx context.Context, in LoginInput) (Result, error) {
	const op, name = "account.Login", "login"

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindValidation, Code: CodeInvalidRequest, Msg: "Email and password are required"})
	}

	u, err := s.getByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			s.burnDummyVerify(in.Password)
			return Result{}, s.fail(ctx, name, invalidCredentials(op, nil))
		}
		return Result{}, s.fail(ctx, name, storeError(op, err))
	}

	if u.Provider.Federated() {
		return Result{}, s.fail(ctx, name, &Error{
			Op:   op,
			Kind: KindAuthentication,
			Code: CodeWrongProvider,
			Msg:  "Please login with " + string(u.Provider),
		})
	}
	if !u.HasPassword() {
		s.burnDummyVerify(in.Password)
		return Result{}, s.fail(ctx, name, invalidCredentials(op, nil))
	}

	ok, err := s.verifyPassword(in.Password, *u.PasswordHash)
	if err != nil {
		s.log.Error("auth.login.hash_unreadable", "user_id", u.ID, "err", err)
		return Result{}, s.fail(ctx, name, invalidCredentials(op, err))
	}
	if !ok {
		return Result{}, s.fail(ctx, name, invalidCredentials(op, nil))
	}

	s.upgradeHash(ctx, u, in.Password)

	pair, err := s.start(ctx, name, u)
	if err != nil {
		return Result{}, s.fail(ctx, name, sessionError(op, err))
	}

	s.succeed(ctx, name, "user_id", u.ID)
	return Result{User: u, Tokens: pair}, nil
}

// Refresh rotates a refresh token into a new pair. The presented token stops
// being accepted once the new one is recorded.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (session.Pair, error) {
	const op, name = "account.Refresh", "refresh"

	tok := strings.TrimSpace(refreshToken)
	if tok == "" {
		return session.Pair{}, s.fail(ctx, name, &Error{Op: op, Kind: KindValidation, Code: CodeInvalidRequest, Msg: "Refresh token required"})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pair, userID, err := s.sessions.Rotate(ctx, tok, func(ctx context.Context, id string) (string, error) {
		u, err := s.store.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return u.Email, nil
	})
	if err != nil {
		return session.Pair{}, s.fail(ctx, name, sessionError(op, err))
	}

	s.metrics.RecordTokensIssued(name)
	s.succeed(ctx, name, "user_id", userID)
	return pair, nil
}

// Logout removes the identity's session record. Access tokens already issued
// stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	const op, name = "account.Logout", "logout"

	if strings.TrimSpace(userID) == "" {
		return s.fail(ctx, name, &Error{Op: op, Kind: KindAuthentication, Code: CodeInvalidCredentials, Msg: "Invalid or expired token"})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return s.fail(ctx, name, sessionError(op, err))
	}

	s.succeed(ctx, name, "user_id", userID)
	return nil
}

// Me returns the identity behind a verified access token.
func (s *Service) Me(ctx context.Context, userID string) (identity.User, error) {
	const op, name = "account.Me", "me"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return identity.User{}, s.fail(ctx, name, storeError(op, err))
	}
	s.metrics.RecordAuth(name, "ok")
	return u, nil
}

// Federate links a verified provider profile to a local identity, creating one
// on first sight, and starts its session.
func (s *Service) Federate(ctx context.Context, p federation.Profile) (Result, error) {
	const op, name = "account.Federate", "federate"

	rctx, cancel := s.withTimeout(ctx)
	u, created, err := s.resolver.Resolve(rctx, p)
	cancel()
	if err != nil {
		if errors.Is(err, federation.ErrMissingEmail) || errors.Is(err, federation.ErrUnverifiedEmail) || identity.IsInvalidInput(err) {
			return Result{}, s.fail(ctx, name, &Error{Op: op, Kind: KindFederation, Code: CodeFederationFailed, Msg: "Provider did not return a usable profile", Err: err})
		}
		return Result{}, s.fail(ctx, name, storeError(op, err))
	}

	pair, err := s.start(ctx, name, u)
	if err != nil {
		return Result{}, s.fail(ctx, name, sessionError(op, err))
	}

	s.succeed(ctx, name, "user_id", u.ID, "provider", string(p.Provider), "created", created)
	return Result{User: u, Tokens: pair, Created: created}, nil
}

// ---- helpers ----

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) getByEmail(ctx context.Context, email string) (identity.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetByEmail(ctx, email)
}

func (s *Service) create(ctx context.Context, in identity.NewUser) (identity.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Create(ctx, in)
}

func (s *Service) start(ctx context.Context, name string, u identity.User) (session.Pair, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pair, err := s.sessions.Start(ctx, u.ID, u.Email)
	if err != nil {
		return session.Pair{}, err
	}
	s.metrics.RecordTokensIssued(name)
	return pair, nil
}

func (s *Service) hashPassword(plain string) (string, error) {
	start := time.Now()
	defer func() { s.metrics.RecordHashDuration(time.Since(start)) }()
	return s.hasher.HashPassword(plain)
}

func (s *Service) verifyPassword(plain, encoded string) (bool, error) {
	start := time.Now()
	defer func() { s.metrics.RecordHashDuration(time.Since(start)) }()
	return s.hasher.VerifyPassword(plain, encoded)
}

func (s *Service) burnDummyVerify(plain string) {
	if s.dummyHash == "" {
		return
	}
	_, _ = s.verifyPassword(plain, s.dummyHash)
}

// upgradeHash re-hashes a verified password stored under outdated parameters.
// Failures are logged and never fail the login.
func (s *Service) upgradeHash(ctx context.Context, u identity.User, plain string) {
	if !s.hasher.NeedsRehash(*u.PasswordHash) {
		return
	}
	hash, err := s.hashPassword(plain)
	if err != nil {
		s.log.Debug("auth.login.rehash_skipped", "user_id", u.ID, "err", err)
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.UpdatePasswordHash(ctx, u.ID, hash, s.now()); err != nil {
		s.log.Warn("auth.login.rehash_failed", "user_id", u.ID, "err", err)
		return
	}
	s.log.Info("auth.login.rehashed", "user_id", u.ID)
}

func (s *Service) fail(ctx context.Context, name string, e *Error) error {
	s.metrics.RecordAuth(name, e.Kind.String())

	level := slog.LevelInfo
	if e.Kind == KindTransient {
		level = slog.LevelError
	}
	attrs := []any{"kind", e.Kind.String(), "code", e.Code}
	if e.Err != nil {
		attrs = append(attrs, "err", e.Err)
	}
	s.log.Log(ctx, level, "auth."+name+".fail", attrs...)
	return e
}

func (s *Service) succeed(ctx context.Context, name string, attrs ...any) {
	s.metrics.RecordAuth(name, "ok")
	s.log.Log(ctx, slog.LevelInfo, "auth."+name+".ok", attrs...)
}

func invalidCredentials(op string, cause error) *Error {
	return &Error{Op: op, Kind: KindAuthentication, Code: CodeInvalidCredentials, Msg: "Invalid credentials", Err: cause}
}

func emailTaken(op string, cause error) *Error {
	return &Error{Op: op, Kind: KindConflict, Code: CodeEmailTaken, Msg: "User already exists", Err: cause}
}

// storeError classifies a credential store failure.
func storeError(op string, err error) *Error {
	switch {
	case identity.IsNotFound(err):
		return &Error{Op: op, Kind: KindNotFound, Code: CodeUserNotFound, Msg: "User not found", Err: err}
	case identity.IsConflict(err):
		return emailTaken(op, err)
	case identity.IsInvalidInput(err):
		return &Error{Op: op, Kind: KindValidation, Code: CodeInvalidRequest, Msg: "Invalid request", Err: err}
	default:
		return &Error{Op: op, Kind: KindTransient, Code: CodeUnavailable, Msg: "Internal server error", Err: err}
	}
}

// sessionError classifies a token or registry failure. Identity errors raised by
// the refresh loader are classified as store errors.
func sessionError(op string, err error) *Error {
	switch {
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrRefreshMismatch):
		return &Error{Op: op, Kind: KindAuthentication, Code: CodeInvalidRefresh, Msg: "Invalid refresh token", Err: err}
	case identity.IsNotFound(err), identity.IsInvalidInput(err):
		return storeError(op, err)
	default:
		return &Error{Op: op, Kind: KindTransient, Code: CodeUnavailable, Msg: "Internal server error", Err: err}
	}
}

// validEmail accepts a bare addr-spec such as "alice@x.com".
func validEmail(s string) bool {
	if len(s) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
