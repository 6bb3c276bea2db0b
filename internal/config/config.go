// config.go

// Environment variable loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MGallo-Code/ferry/internal/token"
	"github.com/joho/godotenv"
)

// Config holds all env configuration vars for ferry.
type Config struct {
	Port     string
	LogLevel slog.Level

	// BaseURL is the public origin the provider redirects back to,
	// e.g. https://login.example.com. Callback URLs are BaseURL + /login/{provider}.
	BaseURL string

	// CookiePassword seals transaction tokens. At least token.MinPasswordLength bytes.
	CookiePassword string
	// CookieSecure marks transaction cookies Secure. Default true.
	CookieSecure bool

	// TokenTTL bounds how long a user may take at the provider. Default 10m.
	TokenTTL time.Duration
	// HTTPTimeout bounds each outbound provider call. Default 10s.
	HTTPTimeout time.Duration

	// RedisURL enables the shared replay guard. Empty means in-memory.
	RedisURL string
	// DatabaseURL enables the Postgres audit trail. Empty disables it.
	DatabaseURL string
	// AuditRetention is how long audit rows are kept. Default 720h.
	AuditRetention time.Duration

	// ProvidersFile is the YAML provider list. Default providers.yaml.
	ProvidersFile string
}

// LoadConfig loads .env (if present) into the environment, then reads and
// validates env vars. Variables already set in the environment win over .env.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7866"
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BASE_URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("BASE_URL must be an absolute http(s) url, got %q", cfg.BaseURL)
	}

	cfg.CookiePassword = os.Getenv("COOKIE_PASSWORD")
	if cfg.CookiePassword == "" {
		return nil, fmt.Errorf("COOKIE_PASSWORD is required")
	}
	if len(cfg.CookiePassword) < token.MinPasswordLength {
		return nil, fmt.Errorf("COOKIE_PASSWORD must be at least %d bytes", token.MinPasswordLength)
	}

	// Default true -- only explicit "false" disables.
	cfg.CookieSecure = os.Getenv("COOKIE_SECURE") != "false"
	if !cfg.CookieSecure && u.Scheme == "https" {
		slog.Warn("COOKIE_SECURE=false with an https BASE_URL")
	}

	cfg.TokenTTL = envDuration("TOKEN_TTL", 10*time.Minute)
	cfg.HTTPTimeout = envDuration("HTTP_TIMEOUT", 10*time.Second)

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.AuditRetention = envDuration("AUDIT_RETENTION", 720*time.Hour)

	cfg.ProvidersFile = os.Getenv("PROVIDERS_FILE")
	if cfg.ProvidersFile == "" {
		cfg.ProvidersFile = "providers.yaml"
	}

	return cfg, nil
}

// CallbackURL returns the absolute redirect URI for provider.
func (c *Config) CallbackURL(provider string) string {
	return c.BaseURL + "/login/" + url.PathEscape(provider)
}

// loadDotEnv loads path into the environment without overriding set vars.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
