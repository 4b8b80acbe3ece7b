package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/store"
	"github.com/juju/clock"
)

// HousekeepingService deletes expired refresh tokens on a fixed interval.
// Rotation and logout delete rows as they go; this catches the sessions that
// were simply abandoned.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Clock    clock.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour and a
// nil clock to the wall clock.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration, clk clock.Clock) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &HousekeepingService{Store: st, Logger: logger, Interval: interval, Clock: clk}
}

// Start runs the sweep loop in the background until Stop or until ctx ends.
// Starting a running service does nothing.
func (s *HousekeepingService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Run(ctx)
	}()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop ends the loop and waits for a sweep in progress. Safe to call when
// the service never started.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.Logger.Info("housekeeping stopped")
}

// Run sweeps once straight away, then every Interval, until ctx ends.
func (s *HousekeepingService) Run(ctx context.Context) {
	for {
		if n, err := s.Cleanup(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.Logger.Error("failed to delete expired refresh tokens", "error", err)
		} else {
			s.Logger.Info("expired refresh tokens deleted", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.Clock.After(s.Interval):
		}
	}
}

// Cleanup deletes every refresh token that has expired by now.
func (s *HousekeepingService) Cleanup(ctx context.Context) (int64, error) {
	return s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, s.Clock.Now())
}
