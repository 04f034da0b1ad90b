package app

import (
	"context"
	"time"

	"notes/cmd/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool builds a pgxpool and validates connectivity.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// migrate applies the embedded schema when MIGRATE_ON_START is set.
func migrate(ctx context.Context, cfg Config, pool *pgxpool.Pool, log Logger) error {
	if !cfg.MigrateOnStart {
		log.Info("db.migrate.skipped")
		return nil
	}
	n, err := migrations.UpWithPool(ctx, pool, cfg.MigrationVersion)
	if err != nil {
		return err
	}
	log.Info("db.migrate.done", "applied", n, "target", cfg.MigrationVersion)
	return nil
}
