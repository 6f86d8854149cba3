package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOncePurgesOnlyExpired(t *testing.T) {
	repo := NewInMemoryChallengeRepository()
	ctx := context.Background()

	now := time.Now()
	expired := ChallengeEntity{
		UserID:    uuid.New(),
		Purpose:   PurposeReset,
		TokenHash: "hash-a",
		ExpiresAt: now.Add(-time.Minute),
	}
	live := ChallengeEntity{
		UserID:    uuid.New(),
		Purpose:   PurposeStepUp,
		TokenHash: "hash-b",
		ExpiresAt: now.Add(time.Minute),
	}
	require.NoError(t, repo.Upsert(ctx, expired))
	require.NoError(t, repo.Upsert(ctx, live))

	sweeper := NewSweeper(repo, WithSweeperClock(func() time.Time { return now }))
	sweeper.SweepOnce(ctx)

	_, err := repo.Get(ctx, expired.UserID, PurposeReset)
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	kept, err := repo.Get(ctx, live.UserID, PurposeStepUp)
	require.NoError(t, err)
	assert.Equal(t, "hash-b", kept.TokenHash)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	repo := NewInMemoryChallengeRepository()
	sweeper := NewSweeper(repo, WithSweepInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestSweeperPurgesThroughRun(t *testing.T) {
	repo := NewInMemoryChallengeRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, ChallengeEntity{
		UserID:    uuid.New(),
		Purpose:   PurposeReset,
		TokenHash: "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	sweeper := NewSweeper(repo, WithSweepInterval(5*time.Millisecond))
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(runCtx)

	assert.Eventually(t, func() bool {
		purged, err := repo.PurgeExpired(ctx, time.Now())
		return err == nil && purged == 0
	}, time.Second, 10*time.Millisecond)
}
