package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/credentials"
	httpapi "github.com/aussiebroadwan/campus/internal/auth/http"
	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
	"github.com/juju/clock"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	codec    *jwtx.Codec
	verifier *credentials.Client

	loginService        *service.LoginService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	key, err := jwtx.DecodeKey(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing key: %w", err)
	}
	app.codec, err = jwtx.NewCodec(jwtx.CodecOptions{
		Key:        key,
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Clock:      clock.WallClock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	app.verifier, err = credentials.NewClient(credentials.Options{
		BaseURL: cfg.IdentityURL,
		Secrets: relayx.StaticSecret(cfg.InternalSecret),
		Timeout: cfg.IdentityTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the service's HTTP handler, for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until SIGINT or SIGTERM. Housekeeping runs alongside and stops
// before the database closes.
func (app *Application) Run() error {
	app.housekeepingService.Start(context.Background())
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	err := httpx.Serve(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	app.housekeepingService.Stop()
	return errors.Join(err, app.Close())
}

// Shutdown drains the HTTP server, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	err := httpx.Drain(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	app.housekeepingService.Stop()
	return errors.Join(err, app.Close())
}

// Close releases the database without touching the HTTP server. Tests that
// only use Handler call this.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseDSN)
	default:
		db, err = sqlite.NewStore(sqliteDSN(app.cfg.DatabaseDSN))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// sqliteDSN turns a bare file name into a modernc DSN with WAL and a busy
// timeout. Anything that already looks like a DSN is used as is.
func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.loginService = &service.LoginService{
		Verifier:    app.verifier,
		Codec:       app.codec,
		Store:       app.db,
		MaxSessions: app.cfg.MaxSessions,
		Clock:       clock.WallClock,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		clock.WallClock,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.LoginService = app.loginService
	router.Verifier = app.verifier
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
