// Package app wires the notes server runtime: config, logging, stores, and HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notes/cmd/identity"
	authapi "notes/cmd/internal/auth/api"
	"notes/cmd/internal/auth/session"
	"notes/cmd/internal/notes"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App is the notes server runtime: it owns the stores, their connections and the HTTP wiring.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool
	redis     *redis.Client

	registry    *prometheus.Registry
	httpMetrics *httpMetrics

	auth  *authapi.Handler
	notes *notes.Handler
}

// stores is the persistence set chosen at startup.
type stores struct {
	users  session.UserStore
	grants session.Store
	notes  notes.Store
}

// New constructs a fully wired App. Without a database URL every store is in memory.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.Env)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	authCfg := authapi.LoadConfigFromEnv()

	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.httpMetrics = newHTTPMetrics(a.registry)

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	revocations, err := a.openRevocations(ctx)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	mgr, err := session.NewManager(sessCfg, st.users, st.grants, sessCfg.Password,
		session.WithLogger(log),
		session.WithRevocations(revocations),
	)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	a.auth, err = authapi.NewHandler(log, authCfg, mgr, authapi.WithMetrics(authapi.NewMetrics(a.registry)))
	if err != nil {
		a.closeResources()
		return nil, err
	}

	a.notes, err = notes.NewHandler(log, st.notes, authCfg.MaxBodyBytes)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		return stores{
			users:  identity.NewMemoryStore(),
			grants: session.NewMemoryStore(),
			notes:  notes.NewMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return stores{}, fmt.Errorf("db: %w", err)
	}
	a.dbPool, a.dbEnabled = pool, true

	if err := migrate(ctx, a.cfg, pool, a.log); err != nil {
		a.closeResources()
		return stores{}, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		a.closeResources()
		return stores{}, err
	}
	noteStore, err := notes.NewPostgresStore(pool)
	if err != nil {
		a.closeResources()
		return stores{}, err
	}

	a.log.Info("db.enabled.postgres_store")
	return stores{users: users, grants: session.NewPostgresStore(pool), notes: noteStore}, nil
}

func (a *App) openRevocations(ctx context.Context) (session.Revocations, error) {
	if a.cfg.RedisURL == "" {
		return session.NopRevocations{}, nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	a.redis = client
	a.log.Info("redis.enabled.revocations")
	return session.NewRedisRevocations(client), nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}
	defer a.closeResources()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled, "redis_enabled", a.redis != nil)

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
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// closeResources releases the pool and the Redis client. It is safe to call more than once.
func (a *App) closeResources() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
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
