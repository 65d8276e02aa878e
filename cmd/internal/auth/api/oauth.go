package authapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"authsvc/cmd/internal/auth/federation"
)

func (h *Handler) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, err := h.providers.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider", "Unknown provider")
		return
	}

	state, err := federation.NewState()
	if err != nil {
		h.log.Error("auth.oauth.state.fail", "provider", name, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	h.setStateCookie(w, state)
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, err := h.providers.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider", "Unknown provider")
		return
	}

	ctx := r.Context()
	issued := h.stateFromCookie(r)
	h.expireStateCookie(w)

	q := r.URL.Query()
	if denied := strings.TrimSpace(q.Get("error")); denied != "" {
		h.oauthFailed(w, r, name, errors.New("provider denied: "+denied))
		return
	}
	if !federation.StateMatches(issued, q.Get("state")) {
		h.oauthFailed(w, r, name, federation.ErrStateMismatch)
		return
	}

	profile, err := p.Exchange(ctx, q.Get("code"))
	if err != nil {
		h.oauthFailed(w, r, name, err)
		return
	}

	res, err := h.accounts.Federate(ctx, profile)
	if err != nil {
		h.oauthFailed(w, r, name, err)
		return
	}

	h.audit(ctx, r, "auth.oauth.success", "provider", name, "user_id", res.User.ID, "created", res.Created)

	target, err := withQuery(h.fedCfg.SuccessRedirect, map[string]string{
		"token":   res.Tokens.AccessToken,
		"refresh": res.Tokens.RefreshToken,
	})
	if err != nil {
		h.oauthFailed(w, r, name, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) oauthFailed(w http.ResponseWriter, r *http.Request, provider string, err error) {
	h.log.Warn("auth.oauth.fail", "provider", provider, "err", err)
	h.audit(r.Context(), r, "auth.oauth.failed", "provider", provider)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.fedCfg.FailureRedirect, http.StatusFound)
}

func withQuery(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- state cookie ----

func (h *Handler) setStateCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    value,
		Path:     "/auth",
		Expires:  time.Now().Add(h.cfg.StateTTL),
		MaxAge:   int(h.cfg.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) stateFromCookie(r *http.Request) string {
	c, err := r.Cookie(h.cfg.StateCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func (h *Handler) expireStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    "",
		Path:     "/auth",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
