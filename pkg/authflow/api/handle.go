package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/depothub/traindepot/pkg/authflow"
	idmerr "github.com/depothub/traindepot/pkg/errors"
)

// Response statuses for flows that branch on two-factor enrollment
const (
	StatusSuccess       = "success"
	StatusStepUpPending = "2fa_required"
)

const genericAuthError = "authentication failed"
const resetRequestedMessage = "If that email has an account, a reset link has been sent"

// Handle serves the authentication endpoints
type Handle struct {
	service *authflow.AuthService
}

// NewHandle creates a new authentication API handle
func NewHandle(service *authflow.AuthService) *Handle {
	return &Handle{service: service}
}

// Register handles POST /register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	user, err := h.service.Register(r.Context(), authflow.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegisterResponse{
		ID:    user.ID.String(),
		Email: user.Email,
	})
}

// Login handles POST /login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if result.RequiresStepUp {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, LoginResponse{
			Status:        StatusStepUpPending,
			EnvelopeToken: result.EnvelopeToken,
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Status: StatusSuccess,
		Tokens: toTokenResponse(result.Tokens),
	})
}

// VerifyStepUp handles POST /2fa/verify
func (h *Handle) VerifyStepUp(w http.ResponseWriter, r *http.Request) {
	var req VerifyStepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	tokens, err := h.service.VerifyStepUp(r.Context(), req.EnvelopeToken, req.Code)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Status: StatusSuccess,
		Tokens: toTokenResponse(tokens),
	})
}

// Refresh handles POST /token/refresh
func (h *Handle) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	access, expiresAt, err := h.service.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RefreshResponse{
		AccessToken:     access,
		AccessExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// EnableTwoFactor handles POST /2fa/enable (authenticated)
func (h *Handle) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	result, err := h.service.EnableTwoFactor(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EnableTwoFactorResponse{
		Secret:        result.Secret,
		RecoveryCodes: result.RecoveryCodes,
	})
}

// DisableTwoFactor handles POST /2fa/disable (authenticated)
func (h *Handle) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		renderUnauthorized(w, r)
		return
	}

	removed, err := h.service.DisableTwoFactor(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, DisableTwoFactorResponse{Disabled: removed})
}

// ForgotPassword handles POST /password/forgot
func (h *Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	result, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if result.RedirectToVerification {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, ForgotPasswordResponse{
			Status:        StatusStepUpPending,
			EnvelopeToken: result.EnvelopeToken,
		})
		return
	}

	// Same body for known and unknown emails
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ForgotPasswordResponse{
		Status:  StatusSuccess,
		Message: resetRequestedMessage,
	})
}

// VerifyResetStepUp handles POST /password/verify-reset
func (h *Handle) VerifyResetStepUp(w http.ResponseWriter, r *http.Request) {
	var req VerifyStepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	if err := h.service.VerifyResetStepUp(r.Context(), req.EnvelopeToken, req.Code); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ForgotPasswordResponse{
		Status:  StatusSuccess,
		Message: resetRequestedMessage,
	})
}

// ResetPassword handles POST /password/reset
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadBody(w, r)
		return
	}

	err := h.service.ResetPassword(r.Context(), authflow.ResetPasswordParams{
		EnvelopeToken:  req.Token,
		NewPassword:    req.NewPassword,
		RepeatPassword: req.RepeatPassword,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password has been reset"})
}

// renderError maps a service error to an HTTP response. Every
// authentication failure collapses to the same 401 body so the response
// never reveals which check failed; the precise code is logged instead.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	if idmerr.IsAuthFailure(err) {
		slog.Info("auth failure", "code", idmerr.GetCode(err), "err", err)
		renderUnauthorized(w, r)
		return
	}

	code := idmerr.GetCode(err)
	status := idmerr.MapErrorCodeToHTTPStatus(code)
	message := "An internal error occurred"
	if status != http.StatusInternalServerError {
		var e *idmerr.Error
		if errors.As(err, &e) {
			message = e.Message
		}
	} else {
		slog.Error("request failed", "code", code, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

func renderUnauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorResponse{Error: genericAuthError})
}

func renderBadBody(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
}

// userIDFromContext extracts the authenticated user from the JWT claims
// set by the jwtauth verifier middleware
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	sub, _ := claims["sub"].(string)
	return uuid.Parse(sub)
}

func toTokenResponse(tokens authflow.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:      tokens.AccessToken,
		AccessExpiresAt:  tokens.AccessExpiresAt.UTC().Format(time.RFC3339),
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt.UTC().Format(time.RFC3339),
	}
}
