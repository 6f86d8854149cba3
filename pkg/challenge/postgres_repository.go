package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresChallengeRepository implements ChallengeRepository using
// PostgreSQL. Step-up challenges live on the two_factor enrollment row
// (at most one in flight per user); reset challenges live in the
// reset_challenge table keyed (user_id, purpose).
type PostgresChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChallengeRepository creates a new PostgreSQL-based challenge repository
func NewPostgresChallengeRepository(pool *pgxpool.Pool) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{pool: pool}
}

func (r *PostgresChallengeRepository) Upsert(ctx context.Context, entity ChallengeEntity) error {
	if entity.Purpose == PurposeStepUp {
		tag, err := r.pool.Exec(ctx,
			`UPDATE two_factor
			 SET challenge_hash = $2, challenge_expires_at = $3, updated_at = now()
			 WHERE user_id = $1`,
			entity.UserID, entity.TokenHash, entity.ExpiresAt)
		if err != nil {
			return fmt.Errorf("failed to store step-up challenge: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no two-factor enrollment for user %s", entity.UserID)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO reset_challenge (id, user_id, purpose, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, purpose)
		 DO UPDATE SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at`,
		uuid.New(), entity.UserID, string(entity.Purpose), entity.TokenHash, entity.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store reset challenge: %w", err)
	}
	return nil
}

func (r *PostgresChallengeRepository) Get(ctx context.Context, userID uuid.UUID, purpose Purpose) (ChallengeEntity, error) {
	entity := ChallengeEntity{UserID: userID, Purpose: purpose}

	var err error
	if purpose == PurposeStepUp {
		err = r.pool.QueryRow(ctx,
			`SELECT challenge_hash, challenge_expires_at
			 FROM two_factor
			 WHERE user_id = $1 AND challenge_hash IS NOT NULL`,
			userID).Scan(&entity.TokenHash, &entity.ExpiresAt)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT token_hash, expires_at
			 FROM reset_challenge
			 WHERE user_id = $1 AND purpose = $2`,
			userID, string(purpose)).Scan(&entity.TokenHash, &entity.ExpiresAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChallengeEntity{}, ErrChallengeNotFound
		}
		return ChallengeEntity{}, fmt.Errorf("failed to load challenge: %w", err)
	}
	return entity, nil
}

// ConsumeIf is a single conditional statement: the hash comparison and
// the clear happen in one round trip, so a challenge can be consumed at
// most once even under concurrent requests.
func (r *PostgresChallengeRepository) ConsumeIf(ctx context.Context, userID uuid.UUID, purpose Purpose, expectedHash string) (bool, error) {
	if purpose == PurposeStepUp {
		tag, err := r.pool.Exec(ctx,
			`UPDATE two_factor
			 SET challenge_hash = NULL, challenge_expires_at = NULL, updated_at = now()
			 WHERE user_id = $1 AND challenge_hash = $2`,
			userID, expectedHash)
		if err != nil {
			return false, fmt.Errorf("failed to consume step-up challenge: %w", err)
		}
		return tag.RowsAffected() > 0, nil
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reset_challenge
		 WHERE user_id = $1 AND purpose = $2 AND token_hash = $3`,
		userID, string(purpose), expectedHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume reset challenge: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresChallengeRepository) Delete(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	var err error
	if purpose == PurposeStepUp {
		_, err = r.pool.Exec(ctx,
			`UPDATE two_factor
			 SET challenge_hash = NULL, challenge_expires_at = NULL, updated_at = now()
			 WHERE user_id = $1`,
			userID)
	} else {
		_, err = r.pool.Exec(ctx,
			`DELETE FROM reset_challenge WHERE user_id = $1 AND purpose = $2`,
			userID, string(purpose))
	}
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (r *PostgresChallengeRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	stepUpTag, err := r.pool.Exec(ctx,
		`UPDATE two_factor
		 SET challenge_hash = NULL, challenge_expires_at = NULL, updated_at = now()
		 WHERE challenge_expires_at < $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge step-up challenges: %w", err)
	}

	resetTag, err := r.pool.Exec(ctx,
		`DELETE FROM reset_challenge WHERE expires_at < $1`, now)
	if err != nil {
		return stepUpTag.RowsAffected(), fmt.Errorf("failed to purge reset challenges: %w", err)
	}

	return stepUpTag.RowsAffected() + resetTag.RowsAffected(), nil
}
