// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// FS exposes the embedded migration files.
func FS() fs.FS { return files }

// VersionMax migrates to the newest embedded version.
const VersionMax = "max"

// runGoose is a seam for tests; target < 0 means "latest".
var runGoose = func(ctx context.Context, db *sql.DB, target int64) (int, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, files)
	if err != nil {
		return 0, err
	}

	var res []*goose.MigrationResult
	if target < 0 {
		res, err = p.Up(ctx)
	} else {
		res, err = p.UpTo(ctx, target)
	}
	return len(res), err
}

// ParseVersion maps MIGRATION_VERSION to a goose target: "max" (or empty) -> -1.
func ParseVersion(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, VersionMax) {
		return -1, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("migrations: invalid version %q", v)
	}
	return n, nil
}

// Up applies migrations up to version and returns how many were applied.
func Up(ctx context.Context, db *sql.DB, version string) (int, error) {
	target, err := ParseVersion(version)
	if err != nil {
		return 0, err
	}
	n, err := runGoose(ctx, db, target)
	if err != nil {
		return n, fmt.Errorf("migrations: %w", err)
	}
	return n, nil
}

// UpWithPool runs Up over a database/sql handle backed by the pgx pool.
func UpWithPool(ctx context.Context, pool *pgxpool.Pool, version string) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return Up(ctx, db, version)
}
