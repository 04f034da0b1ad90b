package app

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"notes/cmd/internal/migrations"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string
	// Env is NODE_ENV; "development" selects the human-readable log handler.
	Env string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration

	// Empty DatabaseURL runs the server on in-memory stores.
	DatabaseURL      string
	DBMaxConns       int32
	DBMinConns       int32
	MigrateOnStart   bool
	MigrationVersion string

	// Empty RedisURL disables access-token revocation cutoffs.
	RedisURL string

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: net.JoinHostPort(EnvString("API_HOST", "0.0.0.0"), strconv.Itoa(EnvInt("API_PORT", 3000))),
		LogLevel: EnvString("LOG_LEVEL", "info"),
		Env:      EnvString("NODE_ENV", "production"),

		ReadHeaderTimeout: EnvDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("HTTP_MAX_HEADER_BYTES", 1<<20),
		ShutdownTimeout:   EnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseURL:      databaseURLFromEnv(),
		DBMaxConns:       EnvInt32("DB_MAX_CONNS", 10),
		DBMinConns:       EnvInt32("DB_MIN_CONNS", 0),
		MigrateOnStart:   EnvBool("MIGRATE_ON_START", true),
		MigrationVersion: EnvString("MIGRATION_VERSION", migrations.VersionMax),

		RedisURL: EnvString("REDIS_URL", ""),

		ReadinessRequireDB: EnvBool("READINESS_REQUIRE_DB", false),
	}
}

// databaseURLFromEnv prefers DATABASE_URL and otherwise assembles a URL from POSTGRES_*.
// It returns "" when neither POSTGRES_DB nor DATABASE_URL is set.
func databaseURLFromEnv() string {
	if v := EnvString("DATABASE_URL", ""); v != "" {
		return v
	}

	db := EnvString("POSTGRES_DB", "")
	if db == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(EnvString("POSTGRES_HOST", "localhost"), strconv.Itoa(EnvInt("POSTGRES_PORT", 5432))),
		Path:   "/" + db,
	}
	user := EnvString("POSTGRES_USER", "")
	if pw := EnvString("POSTGRES_PASSWORD", ""); pw != "" {
		u.User = url.UserPassword(user, pw)
	} else if user != "" {
		u.User = url.User(user)
	}
	if mode := EnvString("POSTGRES_SSLMODE", ""); mode != "" {
		u.RawQuery = url.Values{"sslmode": []string{mode}}.Encode()
	}
	return u.String()
}
