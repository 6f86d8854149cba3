package challenge

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper purges stale challenges
const DefaultSweepInterval = time.Minute

// Sweeper purges unconsumed challenges past their expiry on a fixed
// interval, independent of the request path. Consumers already refuse
// expired challenges, so the sweeper only reclaims storage; running it
// concurrently with request handlers is safe.
type Sweeper struct {
	repo     ChallengeRepository
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// SweeperOption configures a Sweeper
type SweeperOption func(*Sweeper)

// WithSweepInterval sets the purge interval
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = interval
	}
}

// WithSweeperLogger sets the sweeper's logger
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithSweeperClock overrides the wall clock used for expiry comparison
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper creates a new Sweeper
func NewSweeper(repo ChallengeRepository, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		interval: DefaultSweepInterval,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks, purging on every tick until the context is cancelled.
// Callers start it in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("challenge sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single purge cycle
func (s *Sweeper) SweepOnce(ctx context.Context) {
	purged, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to purge expired challenges", "err", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired challenges", "count", purged)
	}
}
