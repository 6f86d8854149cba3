package tokengenerator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	idmerr "github.com/depothub/traindepot/pkg/errors"
)

func newTestTokenService(opts ...Option) *DefaultTokenService {
	issuer := "traindepot-test"
	audience := "traindepot"
	accessGen := NewJwtTokenGenerator("access-secret", issuer, audience)
	refreshGen := NewJwtTokenGenerator("refresh-secret", issuer, audience)
	envelopeGen := NewJwtTokenGenerator("envelope-secret", issuer, audience)
	return NewDefaultTokenService(accessGen, refreshGen, envelopeGen, opts...)
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	token, expiry, err := service.GenerateAccessToken(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(DefaultAccessTokenExpiry), expiry, 5*time.Second)

	parsed, err := service.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestAccessAndRefreshUseDistinctKeys(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	accessToken, _, err := service.GenerateAccessToken(userID)
	require.NoError(t, err)
	refreshToken, _, err := service.GenerateRefreshToken(userID)
	require.NoError(t, err)

	// A token from one family must not validate against the other key
	_, err = service.ParseRefreshToken(accessToken)
	assert.Error(t, err)
	_, err = service.ParseAccessToken(refreshToken)
	assert.Error(t, err)
}

func TestEnvelopeTokenRoundTrip(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	token, _, err := service.GenerateEnvelopeToken(userID, "opaque-challenge-value", 4*time.Minute)
	require.NoError(t, err)

	payload, err := service.ParseEnvelopeToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "opaque-challenge-value", payload.Opaque)
}

func TestEnvelopeTokenExpires(t *testing.T) {
	service := newTestTokenService()

	token, _, err := service.GenerateEnvelopeToken(uuid.New(), "opaque", -1*time.Minute)
	require.NoError(t, err)

	_, err = service.ParseEnvelopeToken(token)
	require.Error(t, err)
	assert.Equal(t, idmerr.ErrCodeTokenExpired, idmerr.GetCode(err))
}

func TestAccessTokenRejectsEnvelopeWithoutChallenge(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	// An access token presented as an envelope must fail even when
	// signed with the right key
	token, _, err := service.envelopeTokenGenerator.GenerateToken(userID.String(), time.Minute, nil)
	require.NoError(t, err)

	_, err = service.ParseEnvelopeToken(token)
	require.Error(t, err)
	assert.Equal(t, idmerr.ErrCodeTokenInvalid, idmerr.GetCode(err))
}

func TestRefreshAccessToken(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	refreshToken, _, err := service.GenerateRefreshToken(userID)
	require.NoError(t, err)

	accessToken, _, err := service.RefreshAccessToken(refreshToken)
	require.NoError(t, err)

	parsed, err := service.ParseAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestRefreshAccessTokenRejectsGarbage(t *testing.T) {
	service := newTestTokenService()

	_, _, err := service.RefreshAccessToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, idmerr.ErrCodeTokenInvalid, idmerr.GetCode(err))
}

func TestParseTokenRejectsTamperedSignature(t *testing.T) {
	service := newTestTokenService()
	userID := uuid.New()

	token, _, err := service.GenerateAccessToken(userID)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = service.ParseAccessToken(tampered)
	assert.Error(t, err)
}
