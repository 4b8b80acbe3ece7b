// Package storetest holds the behaviour every store driver must share. Each
// driver's tests run it against a fresh, migrated store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty, migrated store.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func token(hash string, userID int64, created time.Time, ttl time.Duration) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.NewAt(created).String(),
		TokenHash: hash,
		UserID:    userID,
		Username:  "user",
		Roles:     []string{"USER", "TEACHER"},
		ExpiresAt: created.Add(ttl),
		CreatedAt: created,
	}
}

// RunRefreshTokens exercises store.RefreshTokens.
func RunRefreshTokens(t *testing.T, newStore Factory) {
	t.Run("create and get", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		want := token("hash-a", 7, base, time.Hour)
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, want))

		got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-a")
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, int64(7), got.UserID)
		require.Equal(t, "user", got.Username)
		require.Equal(t, []string{"USER", "TEACHER"}, got.Roles)
		require.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
		require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("unknown hash", func(t *testing.T) {
		st := newStore(t)
		_, err := st.RefreshTokens().GetRefreshTokenByHash(context.Background(), "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate hash", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, token("dup", 1, base, time.Hour)))
		err := st.RefreshTokens().CreateRefreshToken(ctx, token("dup", 1, base.Add(time.Second), time.Hour))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("list by user oldest first", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		repo := st.RefreshTokens()

		require.NoError(t, repo.CreateRefreshToken(ctx, token("second", 3, base.Add(time.Minute), time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("first", 3, base, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("other", 4, base, time.Hour)))

		list, err := repo.ListRefreshTokensByUser(ctx, 3)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "first", list[0].TokenHash)
		require.Equal(t, "second", list[1].TokenHash)

		list, err = repo.ListRefreshTokensByUser(ctx, 99)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("delete one", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		repo := st.RefreshTokens()

		require.NoError(t, repo.CreateRefreshToken(ctx, token("gone", 5, base, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("kept", 5, base, time.Hour)))

		require.NoError(t, repo.DeleteRefreshToken(ctx, "gone"))
		require.ErrorIs(t, repo.DeleteRefreshToken(ctx, "gone"), store.ErrNotFound)

		_, err := repo.GetRefreshTokenByHash(ctx, "gone")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetRefreshTokenByHash(ctx, "kept")
		require.NoError(t, err)
	})

	t.Run("delete by user then lookup", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		repo := st.RefreshTokens()

		require.NoError(t, repo.CreateRefreshToken(ctx, token("d1", 8, base, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("d2", 8, base, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("x", 9, base, time.Hour)))

		n, err := repo.DeleteRefreshTokensByUser(ctx, 8)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		_, err = repo.GetRefreshTokenByHash(ctx, "d1")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = repo.GetRefreshTokenByHash(ctx, "x")
		require.NoError(t, err)
	})

	t.Run("delete expired", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		repo := st.RefreshTokens()

		require.NoError(t, repo.CreateRefreshToken(ctx, token("old", 1, base, time.Minute)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("edge", 1, base, time.Hour)))
		require.NoError(t, repo.CreateRefreshToken(ctx, token("live", 1, base, 2*time.Hour)))

		n, err := repo.DeleteExpiredRefreshTokens(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		list, err := repo.ListRefreshTokensByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "live", list[0].TokenHash)
	})

	t.Run("rotation inside a transaction", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, token("r1", 2, base, time.Hour)))

		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.RefreshTokens().DeleteRefreshToken(ctx, "r1"); err != nil {
				return err
			}
			return tx.RefreshTokens().CreateRefreshToken(ctx, token("r2", 2, base.Add(time.Second), time.Hour))
		})
		require.NoError(t, err)

		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "r1")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.RefreshTokens().GetRefreshTokenByHash(ctx, "r2")
		require.NoError(t, err)
	})
}
