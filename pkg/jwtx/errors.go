package jwtx

import "errors"

// ErrInvalid matches every validation failure. Callers facing clients should
// only ever branch on this; the specific reasons below are for logs.
var ErrInvalid = errors.New("jwtx: invalid token")

var (
	ErrMalformed        = invalidReason("malformed token")
	ErrInvalidSignature = invalidReason("invalid signature")
	ErrExpired          = invalidReason("token expired")
	ErrIssuer           = invalidReason("issuer mismatch")
	ErrWrongType        = invalidReason("wrong token type")
)

var (
	ErrKeyTooShort  = errors.New("jwtx: signing key shorter than 64 bytes")
	ErrNoKeySource  = errors.New("jwtx: no key source")
	ErrEmptySubject = errors.New("jwtx: empty subject")
)

type reasonError struct{ msg string }

func invalidReason(msg string) error { return &reasonError{msg: msg} }

func (e *reasonError) Error() string { return "jwtx: " + e.msg }

func (e *reasonError) Is(target error) bool { return target == ErrInvalid }
