package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/internal/auth/service"
	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/aussiebroadwan/campus/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/campus/pkg/idx"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingDeletesExpiredTokens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(now)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	put := func(hash string, expires time.Time) {
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: idx.New().String(), TokenHash: hash, UserID: 1, Username: "alice",
			ExpiresAt: expires, CreatedAt: now.Add(-time.Hour),
		}))
	}
	exists := func(hash string) bool {
		_, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return false
		}
		require.NoError(t, err)
		return true
	}

	put("stale", now.Add(-time.Minute))
	put("soon", now.Add(30*time.Minute))

	hk := service.NewHousekeepingService(st, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour, clk)
	hk.Start(ctx)
	defer hk.Stop()

	require.Eventually(t, func() bool { return !exists("stale") }, time.Second, 5*time.Millisecond)
	require.True(t, exists("soon"))

	require.NoError(t, clk.WaitAdvance(time.Hour, time.Second, 1))
	require.Eventually(t, func() bool { return !exists("soon") }, time.Second, 5*time.Millisecond)
}

func TestHousekeepingDefaults(t *testing.T) {
	hk := service.NewHousekeepingService(nil, slog.Default(), 0, nil)
	require.Equal(t, time.Hour, hk.Interval)
	require.NotNil(t, hk.Clock)
}

func TestHousekeepingStopIsSafeWithoutStart(t *testing.T) {
	hk := service.NewHousekeepingService(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute, nil)
	hk.Stop()
	hk.Stop()
}

func TestHousekeepingEndsWithContext(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := testclock.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	hk := service.NewHousekeepingService(st, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hk.Run(ctx)
	}()

	require.NoError(t, clk.WaitAdvance(0, time.Second, 1))
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
