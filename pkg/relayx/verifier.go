package relayx

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/campus/pkg/cryptox"
	"github.com/aussiebroadwan/campus/pkg/httpx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// ErrInvalidInternalSecret is logged when a request arrives without the
// shared secret or with the wrong one.
var ErrInvalidInternalSecret = errors.New("relayx: invalid internal secret")

// VerifierMiddleware guards a downstream service. A missing or wrong secret
// ends the request with a bare 403. Otherwise a Principal is rebuilt from the
// envelope when X-Username is present, and the request continues either way.
// Tokens are never looked at here.
func VerifierMiddleware(secrets SecretSource) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			if !cryptox.EqualSecrets(r.Header.Get(HeaderSecret), secrets.InternalSecret()) {
				log.Warn("trust relay rejected",
					"err", ErrInvalidInternalSecret,
					"stage", Rejected403.String(),
				)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			username := r.Header.Get(HeaderUsername)
			if username == "" {
				next.ServeHTTP(w, r)
				return
			}

			p := principal.New(username, ParseRoles(r.Header.Get(HeaderRoles)))
			log = log.With("principal", p.Identity)
			log.Debug("trust relay accepted", "stage", BackendAuthenticated.String(), "roles", p.Roles)

			ctx = principal.WithContext(slogx.WithContext(ctx, log), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only when the relayed Principal holds
// role: no Principal is 401, a Principal without the role is 403.
func RequireRole(role string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			if !ok {
				httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
				return
			}
			if !p.HasRole(role) {
				httpx.WriteBearerError(w, http.StatusForbidden, "insufficient_role", "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrincipal lets the request through only when a Principal was
// relayed.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := principal.FromContext(r.Context()); !ok {
			httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
