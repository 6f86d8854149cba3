package tokengenerator

import (
	"time"

	"github.com/google/uuid"

	idmerr "github.com/depothub/traindepot/pkg/errors"
)

// Token type constants
const (
	ACCESS_TOKEN_NAME   = "access_token"
	REFRESH_TOKEN_NAME  = "refresh_token"
	ENVELOPE_TOKEN_NAME = "envelope_token"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 20 * time.Minute
)

const challengeClaim = "challenge"

// TokenService issues and validates the three token families. Access and
// refresh tokens are signed with independent secrets so compromise of one
// does not compromise the other; envelope tokens carry an opaque challenge
// value between two requests and use a third secret.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID) (string, time.Time, error)
	GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error)
	GenerateEnvelopeToken(userID uuid.UUID, opaque string, ttl time.Duration) (string, time.Time, error)

	ParseAccessToken(tokenStr string) (uuid.UUID, error)
	ParseRefreshToken(tokenStr string) (uuid.UUID, error)
	ParseEnvelopeToken(tokenStr string) (EnvelopePayload, error)

	// RefreshAccessToken validates a refresh token and re-issues an
	// access token for the same subject. The refresh token itself is
	// not rotated.
	RefreshAccessToken(refreshToken string) (string, time.Time, error)
}

// EnvelopePayload is the decoded content of an envelope token
type EnvelopePayload struct {
	UserID uuid.UUID
	Opaque string
}

// DefaultTokenService implements TokenService
type DefaultTokenService struct {
	accessTokenGenerator   TokenGenerator
	refreshTokenGenerator  TokenGenerator
	envelopeTokenGenerator TokenGenerator

	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// Option configures a DefaultTokenService
type Option func(*DefaultTokenService)

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) Option {
	return func(s *DefaultTokenService) {
		s.accessTokenExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) Option {
	return func(s *DefaultTokenService) {
		s.refreshTokenExpiry = expiry
	}
}

// NewDefaultTokenService creates a new token service. The three
// generators must be backed by independent secrets.
func NewDefaultTokenService(accessTokenGenerator, refreshTokenGenerator, envelopeTokenGenerator TokenGenerator, opts ...Option) *DefaultTokenService {
	s := &DefaultTokenService{
		accessTokenGenerator:   accessTokenGenerator,
		refreshTokenGenerator:  refreshTokenGenerator,
		envelopeTokenGenerator: envelopeTokenGenerator,
		accessTokenExpiry:      DefaultAccessTokenExpiry,
		refreshTokenExpiry:     DefaultRefreshTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken issues a short-lived access token for the user
func (s *DefaultTokenService) GenerateAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return s.accessTokenGenerator.GenerateToken(userID.String(), s.accessTokenExpiry, nil)
}

// GenerateRefreshToken issues a refresh token for the user
func (s *DefaultTokenService) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return s.refreshTokenGenerator.GenerateToken(userID.String(), s.refreshTokenExpiry, nil)
}

// GenerateEnvelopeToken issues a signed envelope transporting an opaque
// challenge value to the caller. The envelope expires together with the
// challenge it wraps.
func (s *DefaultTokenService) GenerateEnvelopeToken(userID uuid.UUID, opaque string, ttl time.Duration) (string, time.Time, error) {
	extraClaims := map[string]interface{}{
		challengeClaim: opaque,
	}
	return s.envelopeTokenGenerator.GenerateToken(userID.String(), ttl, extraClaims)
}

// ParseAccessToken validates an access token and returns its subject
func (s *DefaultTokenService) ParseAccessToken(tokenStr string) (uuid.UUID, error) {
	return s.parseSubject(s.accessTokenGenerator, tokenStr)
}

// ParseRefreshToken validates a refresh token and returns its subject
func (s *DefaultTokenService) ParseRefreshToken(tokenStr string) (uuid.UUID, error) {
	return s.parseSubject(s.refreshTokenGenerator, tokenStr)
}

// ParseEnvelopeToken validates an envelope token and returns its payload
func (s *DefaultTokenService) ParseEnvelopeToken(tokenStr string) (EnvelopePayload, error) {
	claims, err := s.envelopeTokenGenerator.ParseToken(tokenStr)
	if err != nil {
		return EnvelopePayload{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return EnvelopePayload{}, idmerr.Wrap(err, idmerr.ErrCodeTokenInvalid, "envelope subject is not a user id")
	}

	opaque, ok := claims.ExtraClaims[challengeClaim].(string)
	if !ok || opaque == "" {
		return EnvelopePayload{}, idmerr.New(idmerr.ErrCodeTokenInvalid, "envelope carries no challenge value")
	}

	return EnvelopePayload{UserID: userID, Opaque: opaque}, nil
}

// RefreshAccessToken validates the refresh token and issues a new access
// token bound to the same user
func (s *DefaultTokenService) RefreshAccessToken(refreshToken string) (string, time.Time, error) {
	userID, err := s.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.GenerateAccessToken(userID)
}

func (s *DefaultTokenService) parseSubject(gen TokenGenerator, tokenStr string) (uuid.UUID, error) {
	claims, err := gen.ParseToken(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, idmerr.Wrap(err, idmerr.ErrCodeTokenInvalid, "token subject is not a user id")
	}
	return userID, nil
}
