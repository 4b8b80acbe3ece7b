package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Services override them through config.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "typ" claim so a refresh token can never stand
// in for an access token at the edge.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the token claims shared by the gateway and the auth service.
// Subject is the canonical username.
type Claims struct {
	jwt.RegisteredClaims

	UserID int64    `json:"userId,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Type   string   `json:"typ"`
}

func newClaims(typ, issuer, subject string, userID int64, roles []string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID: userID,
		Roles:  roles,
		Type:   typ,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two
// tokens minted for the same user in the same second stay distinct, which the
// refresh token table relies on.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
