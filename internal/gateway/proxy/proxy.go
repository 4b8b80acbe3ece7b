// Package proxy forwards requests the gateway has admitted to the service
// that owns their path, carrying the caller's identity in the trust relay
// headers.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// Options tune the upstream transport. Zero values pick the defaults.
type Options struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	Transport             http.RoundTripper // tests only
}

type routeKey struct{}

// Handler looks up the route for a request and reverse-proxies it. It must
// run after the policy decision: it relays whatever Principal it finds in
// the request context.
type Handler struct {
	routes *RouteTable
	proxy  *httputil.ReverseProxy
}

func NewHandler(routes *RouteTable, secrets relayx.SecretSource, opts Options) *Handler {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = 30 * time.Second
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			DialContext:           (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		}
	}

	return &Handler{
		routes: routes,
		proxy: &httputil.ReverseProxy{
			Rewrite:      rewrite(secrets),
			Transport:    transport,
			ErrorHandler: handleError,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, err := h.routes.Lookup(r.URL.Path)
	if err != nil {
		slogx.FromContext(r.Context()).Info("no upstream for path")
		authsdk.ErrNotFound.WriteError(w)
		return
	}

	ctx := context.WithValue(r.Context(), routeKey{}, route)
	h.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func rewrite(secrets relayx.SecretSource) func(*httputil.ProxyRequest) {
	return func(pr *httputil.ProxyRequest) {
		route := pr.In.Context().Value(routeKey{}).(Route)
		pr.SetURL(route.Upstream)
		pr.SetXForwarded()

		var p *principal.Principal
		if got, ok := principal.FromContext(pr.In.Context()); ok {
			p = &got
		}
		relayx.Relay(pr.Out, p, secrets)

		stage := relayx.Unauthenticated
		if p != nil {
			stage = relayx.TrustRelayed
		}
		slogx.FromContext(pr.In.Context()).Debug("forwarding request",
			"upstream", route.Upstream.Host,
			"stage", stage.String(),
		)
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody is left to answer.
		log.Info("client disconnected before upstream answered")
		return
	}
	log.Error("upstream request failed", "err", err)
	authsdk.ErrBadGateway.WriteError(w)
}
