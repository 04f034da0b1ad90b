package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// Config controls auth API transport settings.
type Config struct {
	MaxBodyBytes int64

	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// DefaultConfig returns the production cookie policy: Secure, HttpOnly, SameSite=Strict.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      1 << 20, // 1 MiB
		RefreshCookieName: RefreshCookieName,
		CookiePath:        "/",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteStrictMode,
	}
}

// LoadConfigFromEnv loads auth API config from environment variables with safe defaults.
//
// COOKIE_SECURE=false exists for plain-http local development only.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = envInt64("AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("COOKIE_DOMAIN"))
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
