// Package principal holds the per-request authenticated identity shared by
// the gateway and every service behind it.
//
// A Principal is never persisted. The gateway builds one from a validated
// access token; downstream services rebuild one from the relayed trust
// headers. Role strings are carried verbatim: they are normalized exactly once,
// when the auth service issues a token.
package principal

import (
	"context"
	"regexp"
	"slices"
	"strings"
)

// Principal is an authenticated identity and its granted roles. Roles have
// set semantics: duplicates are dropped, first-seen order is kept.
type Principal struct {
	Identity string
	Roles    []string
}

// New builds a Principal, dropping empty and duplicate roles without
// otherwise touching them.
func New(identity string, roles []string) Principal {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return Principal{Identity: identity, Roles: out}
}

// HasRole reports whether p was granted role. role is normalized before the
// comparison so callers may write either "ADMIN" or "ROLE_ADMIN".
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, NormalizeRole(role))
}

const legacyRolePrefix = "ROLE_"

// NormalizeRole maps a role name to its canonical form: trimmed, upper case,
// without the legacy "ROLE_" prefix.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, legacyRolePrefix)
}

var canonicalRole = regexp.MustCompile(`^[A-Z0-9_]+$`)

// ValidRole reports whether role is in canonical form. Roles travel
// comma-joined in the relay headers and space-joined in the refresh token
// store, so anything outside [A-Z0-9_] could be read back as a different
// role set.
func ValidRole(role string) bool {
	return canonicalRole.MatchString(role)
}

// NormalizeRoles normalizes every role and drops duplicates and anything
// that is not a ValidRole afterwards.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = NormalizeRole(r)
		if !ValidRole(r) || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type ctxKey struct{}

// WithContext attaches p to ctx.
func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the Principal attached to ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
