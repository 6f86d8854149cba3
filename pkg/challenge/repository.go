package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Purpose scopes a challenge to the flow that issued it. A challenge
// issued for one purpose can never be consumed under another.
type Purpose string

const (
	// PurposeStepUp is the post-login (or pre-reset) second-factor
	// challenge, stored on the two-factor enrollment row
	PurposeStepUp Purpose = "step-up"

	// PurposeReset is the password-reset challenge
	PurposeReset Purpose = "password-reset"
)

// Common errors
var (
	ErrChallengeNotFound = errors.New("challenge not found")
)

// ChallengeEntity represents a stored challenge in the domain model.
// Only the hash of the opaque value is ever persisted; the raw value
// travels inside the signed envelope returned to the caller.
type ChallengeEntity struct {
	UserID    uuid.UUID
	Purpose   Purpose
	TokenHash string
	ExpiresAt time.Time
}

// ChallengeRepository defines the storage contract for challenges.
// There is at most one live challenge per (user, purpose); issuing a new
// one supersedes the old.
type ChallengeRepository interface {
	// Upsert stores the challenge, overwriting any live challenge for
	// the same user and purpose.
	Upsert(ctx context.Context, entity ChallengeEntity) error

	// Get returns the live challenge for the user and purpose, or
	// ErrChallengeNotFound.
	Get(ctx context.Context, userID uuid.UUID, purpose Purpose) (ChallengeEntity, error)

	// ConsumeIf clears the stored challenge only if its hash still
	// equals expectedHash, as one atomic storage operation. It reports
	// whether anything was cleared; false means a concurrent consumer
	// got there first or the challenge was superseded.
	ConsumeIf(ctx context.Context, userID uuid.UUID, purpose Purpose, expectedHash string) (bool, error)

	// Delete removes any live challenge for the user and purpose.
	Delete(ctx context.Context, userID uuid.UUID, purpose Purpose) error

	// PurgeExpired removes every challenge whose expiry is strictly
	// before now and returns the number removed. Safe to run
	// concurrently with consumers: it only touches rows that are
	// already logically invalid.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
