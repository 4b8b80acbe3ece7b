package jwtx

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/clock"
)

// CodecOptions configures a Codec. Only Key is required.
type CodecOptions struct {
	Key        KeySource
	Issuer     string // stamped on issued tokens and enforced on validation when set
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      clock.Clock
}

// Codec issues and validates HS512 tokens. It is immutable after NewCodec
// and safe for concurrent use; every service builds exactly one and shares
// it by pointer.
type Codec struct {
	keys       KeySource
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
	parser     *jwt.Parser
}

// Token is a signed token together with the times baked into it.
type Token struct {
	Raw       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewCodec(opts CodecOptions) (*Codec, error) {
	if opts.Key == nil {
		return nil, ErrNoKeySource
	}
	if len(opts.Key.SigningKey()) < MinKeySize {
		return nil, ErrKeyTooShort
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTokenTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTokenTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(opts.Clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &Codec{
		keys:       opts.Key,
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		clock:      opts.Clock,
		parser:     jwt.NewParser(parserOpts...),
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs an access token for subject carrying userID and
// roles. Roles are written as given; normalizing them is the caller's job.
func (c *Codec) IssueAccessToken(subject string, userID int64, roles []string) (Token, error) {
	if subject == "" {
		return Token{}, ErrEmptySubject
	}
	return c.sign(newClaims(TypeAccess, c.issuer, subject, userID, slices.Clone(roles), c.clock.Now(), c.accessTTL))
}

// IssueRefreshToken signs a long-lived refresh token with minimal claims.
func (c *Codec) IssueRefreshToken(subject string, userID int64) (Token, error) {
	if subject == "" {
		return Token{}, ErrEmptySubject
	}
	return c.sign(newClaims(TypeRefresh, c.issuer, subject, userID, nil, c.clock.Now(), c.refreshTTL))
}

func (c *Codec) sign(claims Claims) (Token, error) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.keys.SigningKey())
	if err != nil {
		return Token{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return Token{
		Raw:       raw,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate is the single validation gate: algorithm, then signature, then
// expiry (and issuer when configured). Every error it returns matches
// ErrInvalid.
func (c *Codec) Validate(token string) (Claims, error) {
	var claims Claims
	if _, err := c.parser.ParseWithClaims(token, &claims, c.keyFunc); err != nil {
		return Claims{}, mapParseError(err)
	}
	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// ValidateAccess is Validate restricted to access tokens.
func (c *Codec) ValidateAccess(token string) (Claims, error) {
	return c.validateType(token, TypeAccess)
}

// ValidateRefresh is Validate restricted to refresh tokens.
func (c *Codec) ValidateRefresh(token string) (Claims, error) {
	return c.validateType(token, TypeRefresh)
}

func (c *Codec) validateType(token, typ string) (Claims, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != typ {
		return Claims{}, ErrWrongType
	}
	return claims, nil
}

// ExtractUsername returns the subject of a token that passes Validate.
func (c *Codec) ExtractUsername(token string) (string, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractUserID returns the userId claim of a token that passes Validate.
func (c *Codec) ExtractUserID(token string) (int64, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// ExtractRoles returns the roles claim of a token that passes Validate.
func (c *Codec) ExtractRoles(token string) ([]string, error) {
	claims, err := c.Validate(token)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.keys.SigningKey(), nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	default:
		return ErrMalformed
	}
}
