package http

import (
	"net/http"

	"github.com/aussiebroadwan/campus/internal/gateway/edge"
	"github.com/aussiebroadwan/campus/internal/gateway/policy"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// NormalizePath cleans the request path before anything matches on it. The
// cleaned path is also what the upstream receives.
func NormalizePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleaned := policy.CleanPath(r.URL.Path)
		if cleaned != r.URL.Path || r.URL.RawPath != "" {
			r2 := r.Clone(r.Context())
			r2.URL.Path = cleaned
			r2.URL.RawPath = ""
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate attaches a Principal when the request carries a valid bearer
// token. It never rejects: a missing or bad token leaves the request
// anonymous.
func Authenticate(auth *edge.Authenticator) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := httpx.BearerCredential(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			p, ok := auth.Authenticate(ctx, credential)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			log := slogx.FromContext(ctx).With("principal", p.Identity)
			ctx = principal.WithContext(slogx.WithContext(ctx, log), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize applies the policy table.
func Authorize(m *policy.Matcher) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p *principal.Principal
			if got, ok := principal.FromContext(r.Context()); ok {
				p = &got
			}

			d := m.Decide(r.URL.Path, p)
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			status := d.Status()
			stage := relayx.Rejected403
			if status == http.StatusUnauthorized {
				stage = relayx.Rejected401
			}
			slogx.FromContext(r.Context()).Warn("request refused by policy",
				"err", d.Err,
				"pattern", d.Rule.Pattern,
				"stage", stage.String(),
			)

			if status == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}
			authsdk.ErrAccessDenied.WriteError(w)
		})
	}
}
