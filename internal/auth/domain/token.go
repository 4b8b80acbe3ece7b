package domain

import "time"

// RefreshToken models the stored refresh token record in the DB. The signed
// token itself is never stored, only its fingerprint.
type RefreshToken struct {
	ID        string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	UserID    int64
	Username  string
	Roles     []string // granted at login; reused when the token is refreshed
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	AccessToken      string
	RefreshToken     string
	Username         string
	Roles            []string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
