package app

import (
	"errors"
	"os"
	"time"

	"github.com/aussiebroadwan/campus/pkg/envx"
)

type Config struct {
	InternalSecret string // Required: trust relay secret shared with the gateway and the auth service

	DatabaseFile string // Optional: SQLite database file (default: identity.db)
	PepperFile   string // Optional: password pepper, created on first start (default: pepper)

	BootstrapUsername string // Optional: admin created on an empty database (default: admin)
	BootstrapPassword string // Optional: generated and logged once when empty

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8082)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		InternalSecret:      os.Getenv("INTERNAL_SECRET"),
		DatabaseFile:        envx.String("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:          envx.String("IDENTITY_PEPPER_FILE", "pepper"),
		BootstrapUsername:   envx.String("IDENTITY_BOOTSTRAP_USERNAME", "admin"),
		BootstrapPassword:   os.Getenv("IDENTITY_BOOTSTRAP_PASSWORD"),
		Env:                 envx.String("ENV", "dev"),
		LogLevel:            envx.String("LOG_LEVEL", "info"),
		LogFormat:           envx.String("LOG_FORMAT", "json"),
		Port:                envx.Int("IDENTITY_PORT", 8082),
		ShutdownGracePeriod: envx.Duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func (c Config) Validate() error {
	if c.InternalSecret == "" {
		return errors.New("INTERNAL_SECRET is required")
	}
	if c.BootstrapUsername == "" {
		return errors.New("IDENTITY_BOOTSTRAP_USERNAME must not be empty")
	}
	return nil
}
