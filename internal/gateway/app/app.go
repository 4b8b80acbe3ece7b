package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/internal/gateway/edge"
	httpapi "github.com/aussiebroadwan/campus/internal/gateway/http"
	"github.com/aussiebroadwan/campus/internal/gateway/proxy"
	"github.com/aussiebroadwan/campus/pkg/healthx"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	loginLimitPrefix = "campus:ratelimit:login:"
)

// Application is the edge gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	codec *jwtx.Codec
	redis *redis.Client // nil unless REDIS_URL is set

	server *http.Server
	router *httpapi.Router
}

// New builds the gateway. It fails fast on a bad secret, route file or
// policy table.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
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
	app.codec, err = jwtx.NewCodec(jwtx.CodecOptions{Key: key, Issuer: cfg.Issuer})
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		app.redis = redis.NewClient(opts)
	}

	if err := app.initHTTP(); err != nil {
		app.closeRedis()
		return nil, err
	}

	return app, nil
}

// Handler exposes the gateway's HTTP handler, for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until SIGINT or SIGTERM.
func (app *Application) Run() error {
	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	err := httpx.Serve(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	app.closeRedis()
	return err
}

// Shutdown drains in-flight proxied requests and releases the redis client.
func (app *Application) Shutdown() error {
	err := httpx.Drain(app.server, app.cfg.ShutdownGracePeriod, app.logger)
	app.closeRedis()
	return err
}

func (app *Application) closeRedis() {
	if app.redis == nil {
		return
	}
	if err := app.redis.Close(); err != nil {
		app.logger.Error("error closing redis client", "error", err)
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	routesFile := routesFromConfig(app.cfg)
	if app.cfg.RoutesFile != "" {
		f, err := LoadRoutes(app.cfg.RoutesFile)
		if err != nil {
			return err
		}
		routesFile = f
	}

	table, matcher, err := routesFile.Build()
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}
	for _, r := range table.Routes() {
		app.logger.Info("route registered", "prefix", r.Prefix, "upstream", r.Upstream.String())
	}

	upstream := proxy.NewHandler(table, relayx.StaticSecret(app.cfg.InternalSecret), proxy.Options{
		ResponseHeaderTimeout: app.cfg.UpstreamTimeout,
	})

	router := httpapi.NewRouter(
		edge.NewAuthenticator(app.codec),
		matcher,
		upstream,
		BuildVersion,
		app.logger,
	)

	router.Checks = []healthx.Check{
		{Name: "routes", Probe: func(context.Context) error {
			if table.Len() == 0 {
				return errors.New("no routes configured")
			}
			return nil
		}},
	}

	if app.redis != nil {
		router.LoginLimiter = httpx.NewRedisLimiter(app.redis, loginLimitPrefix, router.LoginLimit)
		router.Checks = append(router.Checks, healthx.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return app.redis.Ping(ctx).Err() },
		})
	} else {
		router.LoginLimiter = httpx.NewMemoryLimiter(router.LoginLimit)
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
