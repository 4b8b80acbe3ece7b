// Package relayx carries an authenticated identity from the edge gateway to
// the services behind it.
//
// The gateway validates the bearer token once and re-asserts the result as
// plain headers (the relay envelope) guarded by a shared secret. Services
// trust those headers when, and only when, the secret matches. Nothing here is
// signed or time limited; the envelope is only as strong as the secret and the
// network it travels on.
package relayx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/campus/pkg/principal"
)

// Envelope headers.
const (
	HeaderUsername = "X-Username"
	HeaderRoles    = "X-Roles"
	HeaderSecret   = "X-Internal-Secret"
)

// SecretSource supplies the shared internal secret. Implementations must be
// safe for concurrent use.
type SecretSource interface {
	InternalSecret() string
}

// StaticSecret is a SecretSource holding one configured value.
type StaticSecret string

func (s StaticSecret) InternalSecret() string { return string(s) }

// Relay prepares an outbound request for a downstream service. Envelope
// headers sent by the client are always dropped. With a principal the
// envelope is rebuilt from it; without one the request goes out anonymous.
func Relay(out *http.Request, p *principal.Principal, secrets SecretSource) {
	Strip(out.Header)
	if p == nil {
		return
	}

	out.Header.Set(HeaderUsername, p.Identity)
	out.Header.Set(HeaderRoles, strings.Join(p.Roles, ","))
	out.Header.Set(HeaderSecret, secrets.InternalSecret())
}

// Strip removes every envelope header from h.
func Strip(h http.Header) {
	h.Del(HeaderUsername)
	h.Del(HeaderRoles)
	h.Del(HeaderSecret)
}

// SetSecret stamps only the secret, for service-to-service calls that act on
// behalf of no user (the auth service calling the credential verifier).
func SetSecret(h http.Header, secrets SecretSource) {
	h.Set(HeaderSecret, secrets.InternalSecret())
}

// ParseRoles splits an X-Roles value: comma separated, trimmed, empties and
// duplicates dropped, otherwise verbatim.
func ParseRoles(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return principal.New("", parts).Roles
}
