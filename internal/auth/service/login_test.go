package service_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/credentials"
	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/campus/pkg/jwtx"
	"github.com/aussiebroadwan/campus/pkg/principal"
	"github.com/aussiebroadwan/campus/pkg/relayx"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
)

var key = jwtx.StaticKey(bytes.Repeat([]byte("k"), jwtx.MinKeySize))

// fakeVerifier knows one user per username, or fails every call with err.
type fakeVerifier struct {
	mu    sync.Mutex
	users map[string]fakeUser
	err   error
}

type fakeUser struct {
	password string
	identity domain.Identity
}

func (f *fakeVerifier) Verify(ctx context.Context, username, password string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return domain.Identity{}, f.err
	}
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, errors.Join(credentials.ErrUnavailable, err)
	}
	u, ok := f.users[username]
	if !ok || u.password != password {
		return domain.Identity{}, credentials.ErrNotFound
	}
	return u.identity, nil
}

type harness struct {
	svc   *service.LoginService
	store *sqlite.Store
	codec *jwtx.Codec
	clock *testclock.Clock
	ver   *fakeVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := testclock.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	codec, err := jwtx.NewCodec(jwtx.CodecOptions{
		Key:        key,
		Issuer:     "campus-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Clock:      clk,
	})
	require.NoError(t, err)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	ver := &fakeVerifier{users: map[string]fakeUser{
		"alice": {password: "correct horse", identity: domain.Identity{ID: 1, Username: "alice", Roles: []string{"ROLE_admin", " user "}}},
		"bob":   {password: "hunter2", identity: domain.Identity{ID: 2, Username: "bob", Roles: []string{"STUDENT"}}},
		"dave":  {password: "tr0ub4dor", identity: domain.Identity{ID: 4, Username: "dave", Roles: []string{"USER,ADMIN", "TEACHING ASSISTANT", "user"}}},
	}}

	return &harness{
		svc:   &service.LoginService{Verifier: ver, Codec: codec, Store: st, Clock: clk},
		store: st,
		codec: codec,
		clock: clk,
		ver:   ver,
	}
}

func TestLogin(t *testing.T) {
	t.Run("issues tokens with every granted role", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		sess, err := h.svc.Login(ctx, "alice", "correct horse", "role_ADMIN")
		require.NoError(t, err)
		require.Equal(t, "alice", sess.Username)
		require.Equal(t, []string{"ADMIN", "USER"}, sess.Roles)

		claims, err := h.codec.ValidateAccess(sess.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Subject)
		require.Equal(t, int64(1), claims.UserID)
		require.Equal(t, []string{"ADMIN", "USER"}, claims.Roles)

		refresh, err := h.codec.ValidateRefresh(sess.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, int64(1), refresh.UserID)

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		require.Equal(t, []string{"ADMIN", "USER"}, tokens[0].Roles)
		require.True(t, tokens[0].ExpiresAt.Equal(sess.RefreshExpiresAt))
	})

	t.Run("wrong password", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Login(context.Background(), "alice", "nope", "ADMIN")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Login(context.Background(), "mallory", "x", "ADMIN")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("role not granted with correct password", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		_, err := h.svc.Login(ctx, "bob", "hunter2", "ADMIN")
		require.ErrorIs(t, err, service.ErrRoleMismatch)

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 2)
		require.NoError(t, err)
		require.Empty(t, tokens)
	})

	t.Run("empty role", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Login(context.Background(), "bob", "hunter2", "  ")
		require.ErrorIs(t, err, service.ErrRoleMismatch)
	})

	t.Run("verifier down", func(t *testing.T) {
		h := newHarness(t)
		h.ver.err = errors.Join(credentials.ErrUnavailable, errors.New("dial tcp: connection refused"))

		_, err := h.svc.Login(context.Background(), "alice", "correct horse", "ADMIN")
		require.ErrorIs(t, err, service.ErrAuthenticationFailed)
		require.NotErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("cancelled request stores nothing", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.svc.Login(ctx, "alice", "correct horse", "ADMIN")
		require.ErrorIs(t, err, service.ErrAuthenticationFailed)

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(context.Background(), 1)
		require.NoError(t, err)
		require.Empty(t, tokens)
	})

	t.Run("max sessions prunes oldest", func(t *testing.T) {
		h := newHarness(t)
		h.svc.MaxSessions = 2
		ctx := context.Background()

		var sessions []*domain.Session
		for range 3 {
			sess, err := h.svc.Login(ctx, "bob", "hunter2", "STUDENT")
			require.NoError(t, err)
			sessions = append(sessions, sess)
			h.clock.Advance(time.Second)
		}

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 2)
		require.NoError(t, err)
		require.Len(t, tokens, 2)

		_, err = h.svc.Refresh(ctx, sessions[0].RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
		_, err = h.svc.Refresh(ctx, sessions[2].RefreshToken)
		require.NoError(t, err)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotates and keeps roles", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		first, err := h.svc.Login(ctx, "alice", "correct horse", "USER")
		require.NoError(t, err)
		h.clock.Advance(time.Minute)

		second, err := h.svc.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.Equal(t, []string{"ADMIN", "USER"}, second.Roles)

		roles, err := h.codec.ExtractRoles(second.AccessToken)
		require.NoError(t, err)
		require.Equal(t, []string{"ADMIN", "USER"}, roles)

		_, err = h.svc.Refresh(ctx, first.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.svc.Login(context.Background(), "alice", "correct horse", "USER")
		require.NoError(t, err)

		_, err = h.svc.Refresh(context.Background(), sess.AccessToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		sess, err := h.svc.Login(context.Background(), "alice", "correct horse", "USER")
		require.NoError(t, err)

		h.clock.Advance(25 * time.Hour)
		_, err = h.svc.Refresh(context.Background(), sess.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("garbage", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Refresh(context.Background(), "not-a-token")
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})

	t.Run("signed but never stored", func(t *testing.T) {
		h := newHarness(t)
		tok, err := h.codec.IssueRefreshToken("alice", 1)
		require.NoError(t, err)

		_, err = h.svc.Refresh(context.Background(), tok.Raw)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
	})
}

func TestLogout(t *testing.T) {
	t.Run("single device", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		a, err := h.svc.Login(ctx, "alice", "correct horse", "USER")
		require.NoError(t, err)
		b, err := h.svc.Login(ctx, "alice", "correct horse", "USER")
		require.NoError(t, err)

		require.NoError(t, h.svc.Logout(ctx, a.RefreshToken, false))
		require.NoError(t, h.svc.Logout(ctx, a.RefreshToken, false))

		_, err = h.svc.Refresh(ctx, a.RefreshToken)
		require.ErrorIs(t, err, service.ErrInvalidRefresh)
		_, err = h.svc.Refresh(ctx, b.RefreshToken)
		require.NoError(t, err)
	})

	t.Run("all devices", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		a, err := h.svc.Login(ctx, "alice", "correct horse", "USER")
		require.NoError(t, err)
		_, err = h.svc.Login(ctx, "alice", "correct horse", "ADMIN")
		require.NoError(t, err)
		_, err = h.svc.Login(ctx, "bob", "hunter2", "STUDENT")
		require.NoError(t, err)

		require.NoError(t, h.svc.Logout(ctx, a.RefreshToken, true))

		tokens, err := h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, tokens)

		tokens, err = h.store.RefreshTokens().ListRefreshTokensByUser(ctx, 2)
		require.NoError(t, err)
		require.Len(t, tokens, 1)

		require.NoError(t, h.svc.Logout(ctx, a.RefreshToken, true))
	})

	t.Run("unknown token", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.svc.Logout(context.Background(), "garbage", true))
		require.NoError(t, h.svc.Logout(context.Background(), "garbage", false))
	})
}

func TestDelimitedRolesNeverGranted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.svc.Login(ctx, "dave", "tr0ub4dor", "USER")
	require.NoError(t, err)
	require.Equal(t, []string{"USER"}, sess.Roles)

	claims, err := h.codec.ValidateAccess(sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"USER"}, claims.Roles)

	// What the gateway relays is what a backend rebuilds.
	p := principal.New(claims.Subject, claims.Roles)
	out := httptest.NewRequest(http.MethodGet, "/api/admin/x", nil)
	relayx.Relay(out, &p, relayx.StaticSecret("s"))
	require.Equal(t, p.Roles, relayx.ParseRoles(out.Header.Get(relayx.HeaderRoles)))
	require.False(t, p.HasRole("ADMIN"))

	// Rotation reads roles back from the store unchanged.
	rotated, err := h.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, []string{"USER"}, rotated.Roles)

	for _, role := range []string{"USER,ADMIN", "TEACHING ASSISTANT", "ADMIN"} {
		_, err := h.svc.Login(ctx, "dave", "tr0ub4dor", role)
		require.ErrorIs(t, err, service.ErrRoleMismatch, role)
	}
}
