package session

import (
	"os"
	"strings"
	"time"

	"notes/cmd/security/password"
	"notes/cmd/security/token"
)

// Config holds every secret and tunable of the session subsystem.
//
// It is built once at startup and passed to NewManager; nothing in this package reads
// the environment after that.
type Config struct {
	// JWTSecret signs access and refresh tokens (HS256).
	JWTSecret []byte

	// CookieSecret keys the digest applied to refresh tokens before bcrypt.
	CookieSecret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Password carries the bcrypt cost and the password policy.
	Password password.Config
}

// DefaultConfig returns defaults without secrets.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Password:        password.DefaultConfig(),
	}
}

// Validate reports ErrConfig when a secret is missing or a ttl is not positive.
func (c Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return ErrConfig
	}
	if err := token.ValidateKey(c.CookieSecret, token.MinKeyBytes); err != nil {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrConfig
	}
	if c.AccessTokenTTL > c.RefreshTokenTTL {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - JWT_SECRET
//   - COOKIE_SECRET (at least 32 bytes)
//
// Optional:
//   - ACCESS_TOKEN_TTL (Go duration, default 15m)
//   - REFRESH_TOKEN_TTL (Go duration, default 168h)
//   - SALT_ROUNDS and the PASSWORD_* policy variables (see password.FromEnv)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.JWTSecret = []byte(strings.TrimSpace(os.Getenv("JWT_SECRET")))
	cfg.CookieSecret = []byte(strings.TrimSpace(os.Getenv("COOKIE_SECRET")))

	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	pw, err := password.FromEnv()
	if err != nil {
		return Config{}, ErrConfig
	}
	cfg.Password = pw

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
