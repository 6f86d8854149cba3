package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type challengeKey struct {
	userID  uuid.UUID
	purpose Purpose
}

// InMemoryChallengeRepository implements ChallengeRepository using
// in-memory storage. Used in tests and single-process deployments.
type InMemoryChallengeRepository struct {
	mu         sync.RWMutex
	challenges map[challengeKey]ChallengeEntity
}

// NewInMemoryChallengeRepository creates a new in-memory challenge repository
func NewInMemoryChallengeRepository() *InMemoryChallengeRepository {
	return &InMemoryChallengeRepository{
		challenges: make(map[challengeKey]ChallengeEntity),
	}
}

// Upsert stores the challenge, superseding any live one for the same key
func (r *InMemoryChallengeRepository) Upsert(ctx context.Context, entity ChallengeEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.challenges[challengeKey{entity.UserID, entity.Purpose}] = entity
	return nil
}

// Get returns the live challenge for the user and purpose
func (r *InMemoryChallengeRepository) Get(ctx context.Context, userID uuid.UUID, purpose Purpose) (ChallengeEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.challenges[challengeKey{userID, purpose}]
	if !ok {
		return ChallengeEntity{}, ErrChallengeNotFound
	}
	return entity, nil
}

// ConsumeIf clears the challenge only if its hash still matches, under
// one lock so the check and the clear are a single atomic step.
func (r *InMemoryChallengeRepository) ConsumeIf(ctx context.Context, userID uuid.UUID, purpose Purpose, expectedHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := challengeKey{userID, purpose}
	entity, ok := r.challenges[key]
	if !ok || entity.TokenHash != expectedHash {
		return false, nil
	}
	delete(r.challenges, key)
	return true, nil
}

// Delete removes any live challenge for the user and purpose
func (r *InMemoryChallengeRepository) Delete(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.challenges, challengeKey{userID, purpose})
	return nil
}

// PurgeExpired removes challenges past their expiry
func (r *InMemoryChallengeRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, entity := range r.challenges {
		if now.After(entity.ExpiresAt) {
			delete(r.challenges, key)
			purged++
		}
	}
	return purged, nil
}
