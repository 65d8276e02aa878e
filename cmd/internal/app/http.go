package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"authsvc/cmd/internal/metrics"
)

// readinessCheck probes one backend.
type readinessCheck struct {
	name  string
	probe func(ctx context.Context) error
}

func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler { return WithRequestLogging(next, a.log, a.metrics) })
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return WithCORS(next, a.cfg, a.log) })
	r.Use(WithSecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"code": "not_found", "message": "Not found"},
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": a.cfg.ServiceName,
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", a.handleReady)

	r.Method(http.MethodGet, "/metrics", metrics.Handler(a.gatherer))

	a.auth.Routes(r)

	return r
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.cfg.ReadinessRequireDB && (a.dbPool == nil || a.rdb == nil) {
		http.Error(w, "backends not configured", http.StatusServiceUnavailable)
		return
	}

	for _, c := range a.readiness {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := c.probe(ctx)
		cancel()
		if err != nil {
			http.Error(w, c.name+" not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.not_ready", "backend", c.name, "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
