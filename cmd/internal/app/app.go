// Package app wires the auth service runtime: config, logging, backends and HTTP routes.
//
// Dependencies are built once in New and passed down by constructor; nothing
// below this package reads global state except its own env config.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"authsvc/cmd/identity"
	"authsvc/cmd/internal/auth/account"
	authapi "authsvc/cmd/internal/auth/api"
	"authsvc/cmd/internal/auth/federation"
	"authsvc/cmd/internal/auth/guard"
	"authsvc/cmd/internal/auth/session"
	"authsvc/cmd/internal/metrics"
	"authsvc/cmd/security/password"
)

// App is the auth service runtime: it owns backend clients and the HTTP server wiring.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool
	rdb    *redis.Client

	metrics  *metrics.Collector
	gatherer prometheus.Gatherer

	readiness []readinessCheck

	auth    *authapi.Handler
	handler http.Handler
}

// New constructs a fully wired App from cfg. Subsystem configuration
// (session secrets, password policy, federation, auth API) is read from the environment.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(sessCfg); err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	acctCfg, err := account.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	fedCfg, err := federation.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	apiCfg, err := authapi.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.closeBackends()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector(reg)
	a.gatherer = reg

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := a.newRegistry(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewService(sessCfg, registry)
	if err != nil {
		return nil, err
	}

	accounts, err := account.New(acctCfg, store, sessions, identity.NewPasswordHasher(pwCfg),
		account.WithLogger(log),
		account.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}

	providers := fedCfg.BuildProviders(&http.Client{Timeout: 10 * time.Second})
	log.Info("federation.providers", "enabled", providers.Names())

	a.auth, err = authapi.NewHandler(log, apiCfg, accounts, guard.New(sessions),
		authapi.WithProviders(providers, fedCfg),
	)
	if err != nil {
		return nil, err
	}

	a.handler = a.routes()
	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// newStore builds the credential store selected by STORE_BACKEND.
func (a *App) newStore(ctx context.Context) (identity.Store, error) {
	if a.cfg.StoreBackend == BackendMemory {
		a.log.Info("store.memory")
		return identity.NewInMemoryStore(), nil
	}

	if a.cfg.RunMigrations {
		if err := Migrate(a.cfg.PostgresURL(), a.log); err != nil {
			return nil, err
		}
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	a.readiness = append(a.readiness, readinessCheck{
		name:  "postgres",
		probe: func(ctx context.Context) error { return PingDB(ctx, pool, 2*time.Second) },
	})

	// The app owns the pool; the store never closes it.
	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	a.log.Info("store.postgres", "max_conns", pool.Config().MaxConns)
	return st, nil
}

// newRegistry builds the session registry selected by SESSION_BACKEND.
func (a *App) newRegistry(ctx context.Context) (session.Registry, error) {
	if a.cfg.SessionBackend == BackendMemory {
		a.log.Info("sessions.memory")
		return session.NewMemoryRegistry(time.Now), nil
	}

	rdb, err := NewRedisClient(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb

	reg := session.NewRedisRegistry(rdb)
	a.readiness = append(a.readiness, readinessCheck{name: "redis", probe: reg.Ping})
	a.log.Info("sessions.redis", "addr", rdb.Options().Addr)
	return reg, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr(),
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", srv.Addr,
		"store", a.cfg.StoreBackend,
		"sessions", a.cfg.SessionBackend,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.closeBackends()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.closeBackends()
		return err
	}

	a.closeBackends()
	a.log.Info("server.stopped")
	return nil
}

// closeBackends releases the pool and the redis client. Safe to call twice.
func (a *App) closeBackends() {
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.rdb = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
