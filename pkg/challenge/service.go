package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	idmerr "github.com/depothub/traindepot/pkg/errors"
	"github.com/depothub/traindepot/pkg/password"
	"github.com/depothub/traindepot/pkg/tokengenerator"
	"github.com/depothub/traindepot/pkg/utils"
)

// Default time-to-live for each challenge purpose
const (
	DefaultStepUpTTL = 3 * time.Minute
	DefaultResetTTL  = 4 * time.Minute
)

const opaqueValueBytes = 32

// SecondFactorCheck verifies a second factor for the user mid-consume.
// It runs after the challenge hash matched and before the challenge is
// cleared, so a failed second factor leaves the challenge intact.
type SecondFactorCheck func(ctx context.Context, userID uuid.UUID) error

// ChallengeService issues and consumes single-use, time-limited
// challenges bound to one user and one purpose.
type ChallengeService struct {
	repo   ChallengeRepository
	tokens tokengenerator.TokenService
	hasher password.Hasher
	logger *slog.Logger
	now    func() time.Time
}

// ChallengeServiceOption configures a ChallengeService
type ChallengeServiceOption func(*ChallengeService)

// WithClock overrides the wall clock used for expiry decisions
func WithClock(now func() time.Time) ChallengeServiceOption {
	return func(s *ChallengeService) {
		s.now = now
	}
}

// WithLogger sets the logger used for internal failure detail
func WithLogger(logger *slog.Logger) ChallengeServiceOption {
	return func(s *ChallengeService) {
		s.logger = logger
	}
}

// NewChallengeService creates a new ChallengeService
func NewChallengeService(repo ChallengeRepository, tokens tokengenerator.TokenService, hasher password.Hasher, opts ...ChallengeServiceOption) *ChallengeService {
	s := &ChallengeService{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a cryptographically random opaque value, persists its
// hash with an expiry strictly in the future, and returns a signed
// envelope embedding the raw value. Any prior live challenge for the
// same user and purpose is superseded.
func (s *ChallengeService) Issue(ctx context.Context, userID uuid.UUID, purpose Purpose, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", idmerr.New(idmerr.ErrCodeInternal, "challenge ttl must be positive")
	}

	opaque := utils.GenerateRandomString(opaqueValueBytes)
	hash, err := s.hasher.Hash(opaque)
	if err != nil {
		return "", idmerr.InternalWrap(err, "failed to hash challenge value")
	}

	err = s.repo.Upsert(ctx, ChallengeEntity{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return "", idmerr.InternalWrap(err, "failed to store challenge")
	}

	envelope, _, err := s.tokens.GenerateEnvelopeToken(userID, opaque, ttl)
	if err != nil {
		return "", idmerr.InternalWrap(err, "failed to issue envelope token")
	}

	s.logger.Debug("issued challenge", "user_id", userID, "purpose", purpose, "ttl", ttl)
	return envelope, nil
}

// Consume verifies an envelope token against the stored challenge and
// clears it. Every check runs before the clear; the clear itself is a
// conditional storage operation keyed on the matched hash, so success is
// reported at most once per challenge. The distinct failure codes are for
// internal logging only and must be collapsed before leaving the service
// boundary.
func (s *ChallengeService) Consume(ctx context.Context, envelope string, purpose Purpose, secondFactor SecondFactorCheck) (uuid.UUID, error) {
	payload, err := s.tokens.ParseEnvelopeToken(envelope)
	if err != nil {
		s.logger.Info("challenge consume rejected envelope", "purpose", purpose, "err", err)
		return uuid.Nil, err
	}

	entity, err := s.repo.Get(ctx, payload.UserID, purpose)
	if err != nil {
		if err == ErrChallengeNotFound {
			s.logger.Info("challenge not found", "user_id", payload.UserID, "purpose", purpose)
			return uuid.Nil, idmerr.New(idmerr.ErrCodeChallengeNotFound, "no live challenge")
		}
		return uuid.Nil, idmerr.InternalWrap(err, "failed to load challenge")
	}

	if s.now().After(entity.ExpiresAt) {
		s.logger.Info("challenge expired", "user_id", payload.UserID, "purpose", purpose)
		return uuid.Nil, idmerr.New(idmerr.ErrCodeChallengeExpired, "challenge expired")
	}

	match, err := s.hasher.Verify(payload.Opaque, entity.TokenHash)
	if err != nil {
		return uuid.Nil, idmerr.InternalWrap(err, "stored challenge hash is malformed")
	}
	if !match {
		s.logger.Info("challenge value mismatch", "user_id", payload.UserID, "purpose", purpose)
		return uuid.Nil, idmerr.New(idmerr.ErrCodeChallengeInvalid, "challenge value mismatch")
	}

	if secondFactor != nil {
		if err := secondFactor(ctx, payload.UserID); err != nil {
			s.logger.Info("second factor rejected", "user_id", payload.UserID, "purpose", purpose, "err", err)
			return uuid.Nil, err
		}
	}

	consumed, err := s.repo.ConsumeIf(ctx, payload.UserID, purpose, entity.TokenHash)
	if err != nil {
		return uuid.Nil, idmerr.InternalWrap(err, "failed to consume challenge")
	}
	if !consumed {
		s.logger.Info("challenge already consumed", "user_id", payload.UserID, "purpose", purpose)
		return uuid.Nil, idmerr.New(idmerr.ErrCodeChallengeConsumed, "challenge already consumed")
	}

	s.logger.Debug("consumed challenge", "user_id", payload.UserID, "purpose", purpose)
	return payload.UserID, nil
}

// Invalidate discards any outstanding challenge for the user and purpose
func (s *ChallengeService) Invalidate(ctx context.Context, userID uuid.UUID, purpose Purpose) error {
	if err := s.repo.Delete(ctx, userID, purpose); err != nil {
		return idmerr.InternalWrap(err, "failed to invalidate challenge")
	}
	return nil
}
