package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/credentials"
	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/pkg/cryptox"
	"github.com/aussiebroadwan/campus/pkg/idx"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/slogx"
	"github.com/juju/clock"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrRoleMismatch         = errors.New("role_mismatch")
	ErrAuthenticationFailed = errors.New("authentication_failed")
	ErrInvalidRefresh       = errors.New("invalid_refresh_token")
)

// Verifier checks a username/password pair against the system that owns
// users. It returns credentials.ErrNotFound when it does not vouch for them
// and any other error when it could not answer.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (domain.Identity, error)
}

// LoginService turns verified credentials into a token pair and keeps the
// refresh side of it in the store.
type LoginService struct {
	Verifier Verifier
	Codec    *jwtx.Codec
	Store    store.Store

	// MaxSessions caps live refresh tokens per user; the oldest go first.
	// Zero means unlimited.
	MaxSessions int

	Clock clock.Clock
}

func (s *LoginService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Login verifies username and password remotely, checks that role is one of
// the granted roles and issues a session carrying every granted role.
//
// Wrong password, unknown user and role mismatch are reported as distinct
// errors here; the HTTP layer folds them into one response.
func (s *LoginService) Login(ctx context.Context, username, password, role string) (*domain.Session, error) {
	l := slogx.FromContext(ctx)

	identity, err := s.Verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			l.Warn("login rejected", slog.String("username", username), slog.String("reason", "invalid credentials"))
			return nil, ErrInvalidCredentials
		}
		l.Error("credential verifier failed", slog.String("username", username), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	granted := principal.NormalizeRoles(identity.Roles)
	for _, r := range identity.Roles {
		if !principal.ValidRole(principal.NormalizeRole(r)) {
			l.Warn("ignoring unusable role from credential verifier",
				slog.String("username", identity.Username),
				slog.String("role", r),
			)
		}
	}
	identity.Roles = granted

	requested := principal.NormalizeRole(role)
	if !principal.ValidRole(requested) || !slices.Contains(identity.Roles, requested) {
		l.Warn("login rejected",
			slog.String("username", identity.Username),
			slog.String("reason", "role mismatch"),
			slog.String("requested_role", requested),
		)
		return nil, ErrRoleMismatch
	}

	session, err := s.issue(ctx, s.Store.RefreshTokens(), identity)
	if err != nil {
		return nil, err
	}

	s.pruneSessions(ctx, identity.ID)

	l.Info("login succeeded", slog.String("username", identity.Username), slog.Int64("user_id", identity.ID))
	return session, nil
}

// Refresh rotates a refresh token: the presented one is deleted and a new
// pair is issued with the roles stored at login. Every failure is
// ErrInvalidRefresh except storage errors.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.ValidateRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh rejected", slog.String("reason", err.Error()))
		return nil, ErrInvalidRefresh
	}

	hash := cryptox.FingerprintToken(refreshToken)
	now := s.now()

	var session *domain.Session
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		repo := tx.RefreshTokens()

		stored, err := repo.GetRefreshTokenByHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("refresh rejected", slog.String("username", claims.Subject), slog.String("reason", "unknown or revoked token"))
			return ErrInvalidRefresh
		}
		if err != nil {
			return err
		}

		if stored.Expired(now) {
			l.Warn("refresh rejected", slog.String("username", stored.Username), slog.String("reason", "stored token expired"))
			return ErrInvalidRefresh
		}
		if stored.UserID != claims.UserID || stored.Username != claims.Subject {
			l.Warn("refresh rejected", slog.String("username", claims.Subject), slog.String("reason", "owner mismatch"))
			return ErrInvalidRefresh
		}

		// Losing this delete means a concurrent refresh already rotated it.
		if err := repo.DeleteRefreshToken(ctx, hash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		session, err = s.issue(ctx, repo, domain.Identity{
			ID:       stored.UserID,
			Username: stored.Username,
			Roles:    stored.Roles,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Logout deletes the refresh token, or with allDevices every refresh token of
// its owner. Logging out twice is not an error.
func (s *LoginService) Logout(ctx context.Context, refreshToken string, allDevices bool) error {
	repo := s.Store.RefreshTokens()
	hash := cryptox.FingerprintToken(refreshToken)

	if !allDevices {
		err := repo.DeleteRefreshToken(ctx, hash)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	}

	var userID int64
	stored, err := repo.GetRefreshTokenByHash(ctx, hash)
	switch {
	case err == nil:
		userID = stored.UserID
	case errors.Is(err, store.ErrNotFound):
		// Already rotated or logged out; a token we signed still names its owner.
		claims, verr := s.Codec.ValidateRefresh(refreshToken)
		if verr != nil {
			return nil
		}
		userID = claims.UserID
	default:
		return err
	}

	n, err := repo.DeleteRefreshTokensByUser(ctx, userID)
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("logged out on all devices", slog.Int64("user_id", userID), slog.Int64("sessions", n))
	return nil
}

func (s *LoginService) issue(ctx context.Context, repo store.RefreshTokens, identity domain.Identity) (*domain.Session, error) {
	access, err := s.Codec.IssueAccessToken(identity.Username, identity.ID, identity.Roles)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Codec.IssueRefreshToken(identity.Username, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now()
	err = repo.CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		TokenHash: cryptox.FingerprintToken(refresh.Raw),
		UserID:    identity.ID,
		Username:  identity.Username,
		Roles:     identity.Roles,
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.Session{
		AccessToken:      access.Raw,
		RefreshToken:     refresh.Raw,
		Username:         identity.Username,
		Roles:            identity.Roles,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// pruneSessions drops the oldest refresh tokens of userID beyond
// MaxSessions. Failures are logged; the login that triggered it stands.
func (s *LoginService) pruneSessions(ctx context.Context, userID int64) {
	if s.MaxSessions <= 0 {
		return
	}
	l := slogx.FromContext(ctx)
	repo := s.Store.RefreshTokens()

	tokens, err := repo.ListRefreshTokensByUser(ctx, userID)
	if err != nil {
		l.Warn("failed to list sessions for pruning", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}

	excess := len(tokens) - s.MaxSessions
	for i := 0; i < excess; i++ {
		if err := repo.DeleteRefreshToken(ctx, tokens[i].TokenHash); err != nil && !errors.Is(err, store.ErrNotFound) {
			l.Warn("failed to prune session", slog.Int64("user_id", userID), slog.Any("error", err))
			return
		}
	}
	if excess > 0 {
		l.Debug("pruned sessions", slog.Int64("user_id", userID), slog.Int("count", excess))
	}
}
