package domain

// Identity is what the credential verifier vouches for: a stable numeric id,
// the canonical username and the granted roles.
type Identity struct {
	ID       int64
	Username string
	Roles    []string
}
