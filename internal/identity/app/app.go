package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	httpapi "github.com/aussiebroadwan/campus/internal/identity/http"
	"github.com/aussiebroadwan/campus/internal/identity/service"
	"github.com/aussiebroadwan/campus/internal/identity/store"
	"github.com/aussiebroadwan/campus/pkg/cryptox"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the identity service: the credential verifier the auth
// service calls, plus a small user API behind the gateway.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          *store.SQLite
	userService *service.UserService

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pepper, err := cryptox.LoadOrGeneratePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.userService, err = service.NewUserService(app.db, cryptox.PasswordHasher{Pepper: pepper})
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.bootstrap(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the service's HTTP handler, for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until SIGINT or SIGTERM, then drains and closes the database.
func (app *Application) Run() error {
	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	err := httpx.Serve(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	return errors.Join(err, app.Close())
}

// Shutdown drains the HTTP server and closes the database.
func (app *Application) Shutdown() error {
	err := httpx.Drain(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	return errors.Join(err, app.Close())
}

// Close releases the database.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := app.cfg.DatabaseFile
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}

	db, err := store.NewSQLite(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db

	app.logger.Info("database migrations applied successfully")
	return nil
}

// bootstrap creates the first admin on an empty database.
func (app *Application) bootstrap() error {
	generated, created, err := app.userService.BootstrapAdmin(context.Background(), app.cfg.BootstrapUsername, app.cfg.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !created {
		return nil
	}
	if generated != "" {
		// Logged once; there is no other way to learn it.
		app.logger.Warn("bootstrap admin created with generated password",
			"username", app.cfg.BootstrapUsername,
			"password", generated,
		)
		return nil
	}
	app.logger.Info("bootstrap admin created", "username", app.cfg.BootstrapUsername)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(relayx.StaticSecret(app.cfg.InternalSecret), app.db, BuildVersion, app.logger)
	router.UserService = app.userService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
