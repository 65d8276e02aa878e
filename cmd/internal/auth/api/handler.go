package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authsvc/cmd/identity"
	"authsvc/cmd/internal/auth/account"
	"authsvc/cmd/internal/auth/federation"
	"authsvc/cmd/internal/auth/guard"
	"authsvc/cmd/internal/auth/session"
)

// Accounts is the orchestration surface behind the HTTP endpoints.
// *account.Service satisfies it.
type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (account.Result, error)
	Login(ctx context.Context, in account.LoginInput) (account.Result, error)
	Refresh(ctx context.Context, refreshToken string) (session.Pair, error)
	Logout(ctx context.Context, userID string) error
	Me(ctx context.Context, userID string) (identity.User, error)
	Federate(ctx context.Context, p federation.Profile) (account.Result, error)
}

// Handler wires HTTP auth endpoints to the account service.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts  Accounts
	guard     *guard.Guard
	providers *federation.Providers
	fedCfg    federation.Config

	limiter *ipLimiter
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithProviders enables the OAuth endpoints for the configured providers.
func WithProviders(p *federation.Providers, cfg federation.Config) HandlerOption {
	return func(h *Handler) {
		if h == nil || p == nil {
			return
		}
		h.providers = p
		h.fedCfg = cfg
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, accounts Accounts, g *guard.Guard, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if accounts == nil {
		return nil, errors.New("auth: nil accounts")
	}
	if g == nil {
		return nil, errors.New("auth: nil guard")
	}
	cfg.normalize()

	h := &Handler{
		log:       log,
		cfg:       cfg,
		accounts:  accounts,
		guard:     g,
		providers: federation.NewProviders(),
		fedCfg: federation.Config{
			SuccessRedirect: "/auth-success",
			FailureRedirect: "/login",
		},
	}
	if cfg.RateLimitRPS > 0 {
		h.limiter = newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitIdle, nil)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes mounts the /auth endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.rateLimit).Post("/register", h.handleRegister)
		r.With(h.rateLimit).Post("/login", h.handleLogin)
		r.With(h.rateLimit).Post("/refresh-token", h.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.Middleware(writeGuardError))
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})

		r.Get("/{provider}", h.handleOAuthStart)
		r.Get("/{provider}/callback", h.handleOAuthCallback)
	})
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	res, err := h.accounts.Register(ctx, account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.register", "user_id", res.User.ID)
	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	res, err := h.accounts.Login(ctx, account.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, account.ErrAuthentication) {
			h.audit(ctx, r, "auth.login.failed", "code", codeOf(err))
		}
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.login.success", "user_id", res.User.ID)
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.readJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	pair, err := h.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, account.ErrInvalidRefresh) {
			h.audit(ctx, r, "auth.refresh.rejected")
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokensResponse(pair))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := guard.PrincipalFromContext(ctx)
	if !ok {
		writeGuardError(w, r, guard.ErrMissingToken)
		return
	}

	if err := h.accounts.Logout(ctx, p.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit(ctx, r, "auth.logout", "user_id", p.ID)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := guard.PrincipalFromContext(ctx)
	if !ok {
		writeGuardError(w, r, guard.ErrMissingToken)
		return
	}

	u, err := h.accounts.Me(ctx, p.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func codeOf(err error) string {
	var e *account.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
