package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
CREATE TABLE users (
    id UUID PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password VARCHAR(255) NOT NULL,
    refresh_token_hash VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE two_factor (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL UNIQUE REFERENCES users (id) ON DELETE CASCADE,
    secret_key VARCHAR(255) NOT NULL,
    is_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    recovery_codes TEXT[],
    challenge_hash VARCHAR(255),
    challenge_expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE reset_challenge (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    purpose VARCHAR(32) NOT NULL,
    token_hash VARCHAR(255) NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, purpose)
);
`

func setupTestPool(t *testing.T) (*pgxpool.Pool, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	userID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password) VALUES ($1, $2, $3)`,
		userID, "alice@example.com", "hash")
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO two_factor (id, user_id, secret_key, is_enabled) VALUES ($1, $2, $3, TRUE)`,
		uuid.New(), userID, "secret")
	require.NoError(t, err)

	return pool, userID
}

func TestPostgresChallengeRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, userID := setupTestPool(t)
	repo := NewPostgresChallengeRepository(pool)
	ctx := context.Background()

	t.Run("StepUpLifecycle", func(t *testing.T) {
		entity := ChallengeEntity{
			UserID:    userID,
			Purpose:   PurposeStepUp,
			TokenHash: "step-up-hash",
			ExpiresAt: time.Now().Add(3 * time.Minute),
		}
		require.NoError(t, repo.Upsert(ctx, entity))

		got, err := repo.Get(ctx, userID, PurposeStepUp)
		require.NoError(t, err)
		assert.Equal(t, "step-up-hash", got.TokenHash)

		// Wrong hash does not consume
		consumed, err := repo.ConsumeIf(ctx, userID, PurposeStepUp, "other-hash")
		require.NoError(t, err)
		assert.False(t, consumed)

		consumed, err = repo.ConsumeIf(ctx, userID, PurposeStepUp, "step-up-hash")
		require.NoError(t, err)
		assert.True(t, consumed)

		// Consumed once, gone afterwards
		consumed, err = repo.ConsumeIf(ctx, userID, PurposeStepUp, "step-up-hash")
		require.NoError(t, err)
		assert.False(t, consumed)

		_, err = repo.Get(ctx, userID, PurposeStepUp)
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("StepUpRequiresEnrollment", func(t *testing.T) {
		otherID := uuid.New()
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, email, password) VALUES ($1, $2, $3)`,
			otherID, "bob@example.com", "hash")
		require.NoError(t, err)

		err = repo.Upsert(ctx, ChallengeEntity{
			UserID:    otherID,
			Purpose:   PurposeStepUp,
			TokenHash: "hash",
			ExpiresAt: time.Now().Add(time.Minute),
		})
		assert.Error(t, err)
	})

	t.Run("ResetUpsertSupersedes", func(t *testing.T) {
		first := ChallengeEntity{
			UserID:    userID,
			Purpose:   PurposeReset,
			TokenHash: "reset-hash-1",
			ExpiresAt: time.Now().Add(4 * time.Minute),
		}
		require.NoError(t, repo.Upsert(ctx, first))

		second := first
		second.TokenHash = "reset-hash-2"
		require.NoError(t, repo.Upsert(ctx, second))

		got, err := repo.Get(ctx, userID, PurposeReset)
		require.NoError(t, err)
		assert.Equal(t, "reset-hash-2", got.TokenHash)

		// The superseded hash cannot consume
		consumed, err := repo.ConsumeIf(ctx, userID, PurposeReset, "reset-hash-1")
		require.NoError(t, err)
		assert.False(t, consumed)

		consumed, err = repo.ConsumeIf(ctx, userID, PurposeReset, "reset-hash-2")
		require.NoError(t, err)
		assert.True(t, consumed)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, ChallengeEntity{
			UserID:    userID,
			Purpose:   PurposeReset,
			TokenHash: "reset-hash",
			ExpiresAt: time.Now().Add(time.Minute),
		}))
		require.NoError(t, repo.Delete(ctx, userID, PurposeReset))
		require.NoError(t, repo.Delete(ctx, userID, PurposeReset))

		_, err := repo.Get(ctx, userID, PurposeReset)
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("PurgeExpired", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		require.NoError(t, repo.Upsert(ctx, ChallengeEntity{
			UserID:    userID,
			Purpose:   PurposeStepUp,
			TokenHash: "expired-step-up",
			ExpiresAt: past,
		}))
		require.NoError(t, repo.Upsert(ctx, ChallengeEntity{
			UserID:    userID,
			Purpose:   PurposeReset,
			TokenHash: "expired-reset",
			ExpiresAt: past,
		}))

		purged, err := repo.PurgeExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 2, purged)

		_, err = repo.Get(ctx, userID, PurposeStepUp)
		assert.ErrorIs(t, err, ErrChallengeNotFound)
		_, err = repo.Get(ctx, userID, PurposeReset)
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})
}
