// Package service implements the credential verifier and user management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/campus/internal/identity/domain"
	"github.com/aussiebroadwan/campus/internal/identity/store"
	"github.com/aussiebroadwan/campus/pkg/cryptox"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_exists")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrInvalidRole        = errors.New("invalid_role")
)

// UserService verifies and manages users.
type UserService struct {
	Store  store.Users
	Hasher cryptox.PasswordHasher

	// dummyHash is verified against when the username is unknown, so both
	// failure paths cost one Argon2id computation.
	dummyHash string
}

func NewUserService(st store.Users, hasher cryptox.PasswordHasher) (*UserService, error) {
	dummy, err := hasher.Hash("campus-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &UserService{Store: st, Hasher: hasher, dummyHash: dummy}, nil
}

// Verify returns the user when password matches. Unknown users and wrong
// passwords are both ErrInvalidCredentials.
func (s *UserService) Verify(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.Store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.Hasher.Verify(password, s.dummyHash)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := s.Hasher.Verify(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			slogx.FromContext(ctx).Error("stored password hash unusable", slog.Int64("user_id", u.ID), slog.Any("error", err))
		}
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Create stores a new user. Roles are normalized before they are stored; a
// role that is not a principal.ValidRole once normalized is ErrInvalidRole.
func (s *UserService) Create(ctx context.Context, username, password string, roles []string) (domain.User, error) {
	for _, r := range roles {
		if !principal.ValidRole(principal.NormalizeRole(r)) {
			return domain.User{}, fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := domain.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Roles:        principal.NormalizeRoles(roles),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	u.ID, err = s.Store.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, err
	}
	return u, nil
}

// Get returns a user by username.
func (s *UserService) Get(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// BootstrapAdmin creates an ADMIN+USER account when the store is empty. With
// an empty password one is generated and returned so it can be logged once.
// It returns created=false when users already exist.
func (s *UserService) BootstrapAdmin(ctx context.Context, username, password string) (generated string, created bool, err error) {
	n, err := s.Store.CountUsers(ctx)
	if err != nil {
		return "", false, err
	}
	if n > 0 {
		return "", false, nil
	}

	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return "", false, err
		}
		generated = password
	}

	if _, err := s.Create(ctx, username, password, []string{"ADMIN", "USER"}); err != nil {
		return "", false, err
	}
	return generated, true, nil
}
