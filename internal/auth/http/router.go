package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/pkg/healthx"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/slogx"

	_ "github.com/aussiebroadwan/campus/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	LoginService *service.LoginService

	// Verifier is probed by /readyz when set.
	Verifier healthx.Pinger

	// LoginLimit throttles POST /auth/login per client IP and username.
	LoginLimit httpx.RateLimitConfig
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		LoginLimit:   httpx.StrictLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Campus Authentication Service API
//	@version		0.1.0
//	@description	Issues HS512 access and refresh tokens for the campus gateway.
//	@description	Credentials are checked by the identity service; this service only mints and rotates tokens.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/campus
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8081
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{LoginService: r.LoginService}

	// Password guessing is limited per client IP and username. The client IP
	// is the one the gateway appended to X-Forwarded-For.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimit(r.LoginLimit, httpx.JoinKeys(httpx.ForwardedIP, httpx.JSONField("username"))),
		),
	)

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimit(httpx.ModerateLimit, httpx.ForwardedIP),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimit(httpx.ModerateLimit, httpx.ForwardedIP),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimit(httpx.LenientLimit, httpx.ForwardedIP),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.readinessChecks()...),
			httpx.RateLimit(httpx.LenientLimit, httpx.ForwardedIP),
		),
	)
}

func (r *Router) readinessChecks() []healthx.Check {
	checks := []healthx.Check{healthx.Ping("database", r.store)}
	if r.Verifier != nil {
		checks = append(checks, healthx.Ping("credential_verifier", r.Verifier))
	}
	return checks
}
