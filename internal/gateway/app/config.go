package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aussiebroadwan/campus/pkg/envx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
)

type Config struct {
	JWTSecret      string // Required: base64 HS512 key shared with the auth service
	InternalSecret string // Required: trust relay secret shared with every backend
	Issuer         string // Optional: expected "iss" claim (default: campus-auth)

	RoutesFile      string // Optional: YAML route and policy table
	AuthURL         string // Optional: upstream for /auth when no routes file is given
	DefaultUpstream string // Optional: upstream for everything else when no routes file is given
	RedisURL        string // Optional: shared login rate limit; in-process limiter when empty

	UpstreamTimeout     time.Duration // Time to wait for upstream response headers (default: 30s)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		JWTSecret:           os.Getenv("AUTH_JWT_SECRET"),
		InternalSecret:      os.Getenv("INTERNAL_SECRET"),
		Issuer:              envx.String("AUTH_ISSUER", "campus-auth"),
		RoutesFile:          os.Getenv("GATEWAY_ROUTES_FILE"),
		AuthURL:             envx.String("GATEWAY_AUTH_URL", "http://localhost:8081"),
		DefaultUpstream:     os.Getenv("GATEWAY_DEFAULT_UPSTREAM"),
		RedisURL:            os.Getenv("REDIS_URL"),
		UpstreamTimeout:     envx.Duration("GATEWAY_UPSTREAM_TIMEOUT", 30*time.Second),
		Env:                 envx.String("ENV", "dev"),
		LogLevel:            envx.String("LOG_LEVEL", "info"),
		LogFormat:           envx.String("LOG_FORMAT", "json"),
		Port:                envx.Int("GATEWAY_PORT", 8080),
		ShutdownGracePeriod: envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate checks the secrets before anything is built from them.
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
	if c.RoutesFile == "" && c.AuthURL == "" {
		return errors.New("either GATEWAY_ROUTES_FILE or GATEWAY_AUTH_URL must be set")
	}
	return nil
}
