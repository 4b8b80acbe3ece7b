package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/aussiebroadwan/campus/pkg/envx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
)

// Supported AUTH_DATABASE_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	JWTSecret      string // Required: base64 HS512 key shared with the gateway
	InternalSecret string // Required: sent to the credential verifier
	Issuer         string // Optional: "iss" claim on issued tokens (default: campus-auth)

	AccessTTL   time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL  time.Duration // Optional: refresh token lifetime (default: 7d)
	MaxSessions int           // Optional: live refresh tokens per user, 0 = unlimited (default: 0)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseDSN    string // Optional: sqlite file or postgres URL (default: auth.db)

	IdentityURL     string        // Optional: credential verifier base URL (default: http://localhost:8082)
	IdentityTimeout time.Duration // Optional: per verify call (default: 5s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8081)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		JWTSecret:            os.Getenv("AUTH_JWT_SECRET"),
		InternalSecret:       os.Getenv("INTERNAL_SECRET"),
		Issuer:               envx.String("AUTH_ISSUER", "campus-auth"),
		AccessTTL:            envx.Duration("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:           envx.Duration("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		MaxSessions:          envx.Int("AUTH_MAX_SESSIONS", 0),
		DatabaseDriver:       envx.String("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseDSN:          envx.String("AUTH_DATABASE_DSN", "auth.db"),
		IdentityURL:          envx.String("IDENTITY_URL", "http://localhost:8082"),
		IdentityTimeout:      envx.Duration("IDENTITY_TIMEOUT", 5*time.Second),
		Env:                  envx.String("ENV", "dev"),
		LogLevel:             envx.String("LOG_LEVEL", "info"),
		LogFormat:            envx.String("LOG_FORMAT", "json"),
		Port:                 envx.Int("AUTH_PORT", 8081),
		ShutdownGracePeriod:  envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: envx.Duration("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// Validate checks the secrets and the database settings.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if _, err := jwtx.DecodeKey(c.JWTSecret); err != nil {
		return fmt.Errorf("AUTH_JWT_SECRET: %w", err)
	}
	if c.InternalSecret == "" {
		return errors.New("INTERNAL_SECRET is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("AUTH_ACCESS_TTL and AUTH_REFRESH_TTL must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return errors.New("AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL")
	}
	if c.MaxSessions < 0 {
		return errors.New("AUTH_MAX_SESSIONS must not be negative")
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("AUTH_DATABASE_DRIVER %q is not one of sqlite, postgres", c.DatabaseDriver)
	}
	if u, err := url.Parse(c.IdentityURL); err != nil || u.Host == "" {
		return fmt.Errorf("IDENTITY_URL %q is not an absolute URL", c.IdentityURL)
	}
	return nil
}
