// Package app wires the Letterbox server runtime: config, logging, stores,
// services and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"letterbox/cmd/identity"
	authapi "letterbox/cmd/internal/auth/api"
	"letterbox/cmd/internal/auth/credential"
	"letterbox/cmd/internal/httpx"
	"letterbox/cmd/internal/letter"
	letterapi "letterbox/cmd/internal/letter/api"
	"letterbox/cmd/security/password"
	"letterbox/cmd/security/token"
	"letterbox/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the Letterbox server runtime. It owns the database pool (if any)
// and the fully wrapped HTTP handler.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	metrics *Metrics
	handler http.Handler
}

// stores groups the persistence boundaries chosen for this process.
type stores struct {
	users   identity.Store
	audit   identity.AuditStore
	letters letter.Store
}

// New constructs a fully wired App. An empty cfg.DatabaseURL selects the in-memory stores.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg)
	}
	hmacKey, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	credCfg, err := credential.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("token config (LETTERBOX_JWT_SECRET is required): %w", err)
	}
	tokens, err := credential.NewHS256Manager(credCfg)
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	st, pool, err := newStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, pool: pool, metrics: NewMetrics()}

	svc, err := letter.NewService(st.letters, log,
		letter.WithObserver(a.metrics),
		letter.WithGuestMinter(token.NewMinter(hmacKey)),
	)
	if err != nil {
		a.closePool()
		return nil, err
	}

	authn := httpx.NewAuthenticator(tokens, nil)

	authHandler, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), authapi.Deps{
		Users:    st.users,
		Audit:    st.audit,
		Tokens:   tokens,
		Auth:     authn,
		Password: pwCfg,
	})
	if err != nil {
		a.closePool()
		return nil, err
	}

	letterHandler, err := letterapi.NewHandler(log, letterapi.LoadConfigFromEnv(), svc, authn)
	if err != nil {
		a.closePool()
		return nil, err
	}

	mux := http.NewServeMux()
	a.registerHTTP(mux, authHandler, letterHandler)
	a.handler = a.wrap(mux)

	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// wrap applies the middleware chain. Outermost first:
// request id, logging, metrics, recover, security headers, CORS.
func (a *App) wrap(h http.Handler) http.Handler {
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, a.log)
	if a.cfg.MetricsEnabled {
		h = a.metrics.Instrument(h)
	}
	h = WithRequestLogging(h, a.log)
	return WithRequestID(h)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", runtimeBaseURL(a.cfg.HTTPAddr),
		"db_enabled", a.pool != nil,
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
		a.closePool()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
	}
	a.closePool()

	a.log.Info("server.stopped")
	return err
}

func (a *App) closePool() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
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

// newStores decides between Postgres-backed persistence and the in-memory dev stores.
// The returned pool is nil in memory mode; otherwise the app owns and closes it.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		users := identity.NewMemoryStore()
		return stores{
			users:   users,
			audit:   users,
			letters: letter.NewMemoryStore(users),
		}, nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return stores{}, nil, err
	}

	if cfg.DBMigrate {
		if err := migrations.Up(ctx, pool, log); err != nil {
			pool.Close()
			return stores{}, nil, err
		}
		log.Info("db.migrate.done")
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	letters, err := letter.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}

	log.Info("db.enabled.postgres_store")
	return stores{users: users, audit: users, letters: letters}, pool, nil
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
