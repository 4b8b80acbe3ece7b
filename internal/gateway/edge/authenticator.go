// Package edge turns a bearer credential into a Principal at the gateway.
package edge

import (
	"context"

	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

// AccessValidator is the slice of jwtx.Codec the gateway needs.
type AccessValidator interface {
	ValidateAccess(token string) (jwtx.Claims, error)
}

// Authenticator validates access tokens. It never rejects a request itself:
// a bad token yields no Principal and the policy decides what that means.
type Authenticator struct {
	tokens AccessValidator
}

func NewAuthenticator(tokens AccessValidator) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate returns the Principal carried by credential, or false. The
// reason a token was refused is logged and goes nowhere else.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (principal.Principal, bool) {
	claims, err := a.tokens.ValidateAccess(credential)
	if err != nil {
		slogx.FromContext(ctx).Warn("bearer token rejected",
			"reason", err,
			"stage", relayx.Unauthenticated.String(),
		)
		return principal.Principal{}, false
	}

	p := principal.New(claims.Subject, claims.Roles)
	slogx.FromContext(ctx).Debug("bearer token accepted",
		"principal", p.Identity,
		"stage", relayx.EdgeAuthenticated.String(),
	)
	return p, true
}
