package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/campus/internal/gateway/edge"
	"github.com/aussiebroadwan/campus/internal/gateway/policy"
	"github.com/aussiebroadwan/campus/internal/gateway/proxy"
	"github.com/aussiebroadwan/campus/pkg/healthx"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// LoginPath is the one gateway path with its own rate limit.
const LoginPath = "/auth/login"

// Router is the gateway's HTTP entry point.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	authenticator *edge.Authenticator
	matcher       *policy.Matcher
	proxy         *proxy.Handler

	// LoginLimiter throttles POST /auth/login by client IP and username.
	// Optional.
	LoginLimiter httpx.Limiter
	LoginLimit   httpx.RateLimitConfig

	// Checks feed /readyz.
	Checks []healthx.Check
}

func NewRouter(
	auth *edge.Authenticator,
	matcher *policy.Matcher,
	upstream *proxy.Handler,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		authenticator: auth,
		matcher:       matcher,
		proxy:         upstream,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		LoginLimit:    httpx.StrictLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		NormalizePath,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerProxy()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	// Probes answer for the gateway itself and bypass the policy table.
	r.Mux.Handle("GET /livez", healthx.Livez(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", healthx.Readyz(r.startTime, r.buildVersion, r.Checks...))
}

func (r *Router) registerProxy() {
	guarded := []httpx.Middleware{
		Authenticate(r.authenticator),
		Authorize(r.matcher),
	}

	r.Mux.Handle("/", httpx.Chain(r.proxy, guarded...))

	if r.LoginLimiter != nil {
		limit := httpx.LimitMiddleware(r.LoginLimiter, r.LoginLimit, httpx.JoinKeys(
			httpx.RemoteIP,
			httpx.JSONField("username"),
		))
		r.Mux.Handle("POST "+LoginPath, httpx.Chain(r.proxy, append(guarded, limit)...))
	}
}
