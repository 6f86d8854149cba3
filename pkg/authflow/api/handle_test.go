package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depothub/traindepot/pkg/authflow"
	"github.com/depothub/traindepot/pkg/challenge"
	"github.com/depothub/traindepot/pkg/notification"
	"github.com/depothub/traindepot/pkg/password"
	"github.com/depothub/traindepot/pkg/tokengenerator"
	"github.com/depothub/traindepot/pkg/totp"
)

const testAccessSecret = "access-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hasher := password.NewBcryptHasher(password.WithCost(4))
	tokens := tokengenerator.NewDefaultTokenService(
		tokengenerator.NewJwtTokenGenerator(testAccessSecret, "traindepot", "traindepot"),
		tokengenerator.NewJwtTokenGenerator("refresh-secret", "traindepot", "traindepot"),
		tokengenerator.NewJwtTokenGenerator("envelope-secret", "traindepot", "traindepot"),
	)
	challenges := challenge.NewChallengeService(challenge.NewInMemoryChallengeRepository(), tokens, hasher)

	notifier := notification.NewNotificationManager("http://localhost:3000")
	notifier.RegisterNotifier(notification.EmailSystem, &notification.MockNotifier{})
	for _, nt := range []notification.NoticeType{
		notification.RegisterConfirmationNotice,
		notification.PasswordResetInitNotice,
		notification.PasswordResetConfirmNotice,
	} {
		require.NoError(t, notifier.RegisterNotification(nt, notification.EmailSystem, notification.NoticeTemplate{Subject: string(nt)}))
	}

	service := authflow.NewAuthService(
		authflow.NewInMemoryUserRepository(),
		authflow.NewInMemoryTwoFactorRepository(),
		tokens,
		challenges,
		totp.NewEngine(),
		hasher,
		notifier,
	)

	r := chi.NewRouter()
	accessAuth := jwtauth.New("HS256", []byte(testAccessSecret), nil)
	Routes(r, NewHandle(service), accessAuth)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRegisterLoginEndpoints(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/register", "", RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg RegisterResponse
	decodeBody(t, resp, &reg)
	assert.Equal(t, "alice@example.com", reg.Email)

	resp = postJSON(t, server.URL+"/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login LoginResponse
	decodeBody(t, resp, &login)
	assert.Equal(t, StatusSuccess, login.Status)
	require.NotNil(t, login.Tokens)
	assert.NotEmpty(t, login.Tokens.AccessToken)
}

func TestLoginRejectionsShareOneBody(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/register", "", RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var bodies []ErrorResponse
	for _, req := range []LoginRequest{
		{Email: "nobody@example.com", Password: "whatever password"},
		{Email: "alice@example.com", Password: "wrong password!!"},
	} {
		resp := postJSON(t, server.URL+"/login", "", req)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body ErrorResponse
		decodeBody(t, resp, &body)
		bodies = append(bodies, body)
	}
	assert.Equal(t, bodies[0], bodies[1], "unknown email and wrong password must be indistinguishable")
}

func TestTwoFactorEndpointsRequireAuth(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/2fa/enable", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestTwoFactorEnableOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/register", "", RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login LoginResponse
	decodeBody(t, resp, &login)
	require.NotNil(t, login.Tokens)

	resp = postJSON(t, server.URL+"/2fa/enable", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var enrollment EnableTwoFactorResponse
	decodeBody(t, resp, &enrollment)
	assert.NotEmpty(t, enrollment.Secret)
	assert.Len(t, enrollment.RecoveryCodes, 8)

	// Next login must branch into the step-up flow
	resp = postJSON(t, server.URL+"/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login = LoginResponse{}
	decodeBody(t, resp, &login)
	assert.Equal(t, StatusStepUpPending, login.Status)
	assert.NotEmpty(t, login.EnvelopeToken)
	assert.Nil(t, login.Tokens)
}

func TestForgotPasswordAlwaysAnswersTheSame(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/register", "", RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var bodies []ForgotPasswordResponse
	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		resp := postJSON(t, server.URL+"/password/forgot", "", ForgotPasswordRequest{Email: email})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body ForgotPasswordResponse
		decodeBody(t, resp, &body)
		bodies = append(bodies, body)
	}
	assert.Equal(t, bodies[0], bodies[1], "known and unknown emails must get the same response")
}
