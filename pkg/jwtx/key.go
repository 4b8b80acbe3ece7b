package jwtx

import (
	"encoding/base64"
	"strings"
)

// MinKeySize is the smallest HS512 key accepted, in bytes.
const MinKeySize = 64

// KeySource supplies the HMAC key. The codec asks for it on every sign and
// verify, so an implementation backed by a secret manager can swap keys
// without any caller changing.
type KeySource interface {
	SigningKey() []byte
}

// StaticKey is a KeySource holding one fixed key.
type StaticKey []byte

func (k StaticKey) SigningKey() []byte { return k }

// DecodeKey decodes a base64 (standard alphabet, padded or not) secret as
// found in AUTH_JWT_SECRET.
func DecodeKey(secret string) (StaticKey, error) {
	secret = strings.TrimSpace(secret)
	b, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(secret)
		if err != nil {
			return nil, err
		}
	}
	if len(b) < MinKeySize {
		return nil, ErrKeyTooShort
	}
	return StaticKey(b), nil
}
