package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// audit emits one security event with the request's client metadata.
// Tokens and passwords are never passed here.
func (h *Handler) audit(ctx context.Context, r *http.Request, action string, attrs ...any) {
	ip := ""
	if v := clientIP(r, h.cfg.TrustProxy); v != nil {
		ip = v.String()
	}
	base := []any{
		"action", action,
		"ip", ip,
		"user_agent", strings.TrimSpace(r.UserAgent()),
	}
	if id := middleware.GetReqID(ctx); id != "" {
		base = append(base, "request_id", id)
	}
	h.log.Log(ctx, slog.LevelInfo, "audit", append(base, attrs...)...)
}
