package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/internal/identity/service"
	"github.com/aussiebroadwan/campus/pkg/healthx"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// Router is the identity service's HTTP entry point. Everything except the
// probes sits behind the trust relay verifier.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	secrets     relayx.SecretSource
	db          healthx.Pinger
	UserService *service.UserService
}

func NewRouter(secrets relayx.SecretSource, db healthx.Pinger, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		secrets:      secrets,
		db:           db,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	trusted := relayx.VerifierMiddleware(r.secrets)

	verify := &VerifyHandler{UserService: r.UserService}
	r.Mux.Handle("POST /verify", httpx.Chain(verify, trusted))

	users := &UsersHandler{UserService: r.UserService}
	r.Mux.Handle("POST /api/admin/users",
		httpx.Chain(http.HandlerFunc(users.HandleCreate),
			trusted,
			relayx.RequireRole("ADMIN"),
		),
	)
	r.Mux.Handle("GET /api/whoami",
		httpx.Chain(http.HandlerFunc(users.HandleWhoAmI),
			trusted,
			relayx.RequirePrincipal,
		),
	)
	r.Mux.Handle("GET /api/user/me",
		httpx.Chain(http.HandlerFunc(users.HandleMe),
			trusted,
			relayx.RequireRole("USER"),
		),
	)

	r.Mux.Handle("GET /livez", healthx.Livez(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", healthx.Readyz(r.startTime, r.buildVersion, healthx.Ping("database", r.db)))
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
