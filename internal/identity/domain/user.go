// Package domain holds the identity service's records.
package domain

import "time"

// User is a stored identity. Username is canonical as stored; lookups ignore
// case.
type User struct {
	ID           int64
	Username     string
	PasswordHash string // PHC-format Argon2id
	Roles        []string
	CreatedAt    time.Time
}
