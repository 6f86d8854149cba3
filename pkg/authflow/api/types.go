package api

// ErrorResponse is the generic error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain confirmation body
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest is the body for POST /register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned after successful registration
type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginRequest is the body for POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued token pair
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

// LoginResponse is returned from POST /login. When two-factor is
// required only the envelope token is set; the client must call
// /2fa/verify to obtain the token pair.
type LoginResponse struct {
	Status        string         `json:"status"`
	EnvelopeToken string         `json:"envelope_token,omitempty"`
	Tokens        *TokenResponse `json:"tokens,omitempty"`
}

// VerifyStepUpRequest is the body for POST /2fa/verify and
// POST /password/verify-reset
type VerifyStepUpRequest struct {
	EnvelopeToken string `json:"envelope_token"`
	Code          string `json:"code"`
}

// RefreshRequest is the body for POST /token/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is returned from POST /token/refresh
type RefreshResponse struct {
	AccessToken     string `json:"access_token"`
	AccessExpiresAt string `json:"access_expires_at"`
}

// EnableTwoFactorResponse carries the one-time enrollment data
type EnableTwoFactorResponse struct {
	Secret        string   `json:"secret"`
	RecoveryCodes []string `json:"recovery_codes"`
}

// DisableTwoFactorResponse reports whether an enrollment was removed
type DisableTwoFactorResponse struct {
	Disabled bool `json:"disabled"`
}

// ForgotPasswordRequest is the body for POST /password/forgot
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse is returned from POST /password/forgot.
// The message is identical whether or not the email has an account.
type ForgotPasswordResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	EnvelopeToken string `json:"envelope_token,omitempty"`
}

// ResetPasswordRequest is the body for POST /password/reset
type ResetPasswordRequest struct {
	Token          string `json:"token"`
	NewPassword    string `json:"new_password"`
	RepeatPassword string `json:"repeat_password"`
}
