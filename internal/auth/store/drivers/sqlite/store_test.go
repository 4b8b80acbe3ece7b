package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/campus/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestRefreshTokenRepository(t *testing.T) {
	storetest.RunRefreshTokens(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestApplyMigrationsTwice(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.ApplyMigrations())
}

func TestWithTxRollsBack(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: "01J00000000000000000000001", TokenHash: "h1", UserID: 1, Username: "alice",
			ExpiresAt: now.Add(time.Hour), CreatedAt: now,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "h1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.Panics(t, func() {
		_ = st.WithTx(ctx, func(tx store.Tx) error {
			require.NoError(t, tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID: "01J00000000000000000000002", TokenHash: "h2", UserID: 1, Username: "alice",
				ExpiresAt: now.Add(time.Hour), CreatedAt: now,
			}))
			panic("boom")
		})
	})

	_, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "h2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPing(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
