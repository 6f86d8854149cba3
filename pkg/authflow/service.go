package authflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/depothub/traindepot/pkg/challenge"
	idmerr "github.com/depothub/traindepot/pkg/errors"
	"github.com/depothub/traindepot/pkg/notification"
	"github.com/depothub/traindepot/pkg/password"
	"github.com/depothub/traindepot/pkg/tokengenerator"
	"github.com/depothub/traindepot/pkg/totp"
)

// genericCredentialMsg is the single message returned for every
// credential-related failure so callers cannot distinguish a wrong
// password from an unknown email or a bad one-time code.
const genericCredentialMsg = "incorrect email or password"

const minPasswordLength = 8

// RegisterParams holds the input for user registration
type RegisterParams struct {
	Email    string
	Password string
}

// UserInfo is the externally visible shape of a user
type UserInfo struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// TokenPair is an issued access/refresh token pair
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult is the outcome of a login attempt. When the account has
// two-factor enabled no tokens are issued; the caller must complete the
// step-up flow with the returned envelope token instead.
type LoginResult struct {
	RequiresStepUp bool
	EnvelopeToken  string
	Tokens         TokenPair
	User           UserInfo
}

// ForgotPasswordResult is the outcome of a password reset request.
// Sent is internal bookkeeping: handlers must answer identically whether
// or not a mail actually went out, so an unknown email is not revealed.
type ForgotPasswordResult struct {
	RedirectToVerification bool
	EnvelopeToken          string
	Sent                   bool
}

// EnableTwoFactorResult carries the freshly generated enrollment data.
// The secret and recovery codes are shown to the user exactly once.
type EnableTwoFactorResult struct {
	Secret        string
	RecoveryCodes []string
}

// ResetPasswordParams holds the input for completing a password reset
type ResetPasswordParams struct {
	EnvelopeToken  string
	NewPassword    string
	RepeatPassword string
}

// AuthService orchestrates registration, login, two-factor step-up and
// password reset on top of the repositories and the token, challenge,
// TOTP and notification services.
type AuthService struct {
	users      UserRepository
	twoFactor  TwoFactorRepository
	tokens     tokengenerator.TokenService
	challenges *challenge.ChallengeService
	totp       *totp.Engine
	hasher     password.Hasher
	notifier   *notification.NotificationManager
	logger     *slog.Logger

	stepUpTTL time.Duration
	resetTTL  time.Duration
}

// AuthServiceOption configures an AuthService
type AuthServiceOption func(*AuthService)

// WithAuthLogger sets the logger used for internal failure detail
func WithAuthLogger(logger *slog.Logger) AuthServiceOption {
	return func(s *AuthService) {
		s.logger = logger
	}
}

// WithStepUpTTL overrides the step-up challenge time-to-live
func WithStepUpTTL(ttl time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.stepUpTTL = ttl
	}
}

// WithResetTTL overrides the password reset challenge time-to-live
func WithResetTTL(ttl time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.resetTTL = ttl
	}
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	twoFactor TwoFactorRepository,
	tokens tokengenerator.TokenService,
	challenges *challenge.ChallengeService,
	totpEngine *totp.Engine,
	hasher password.Hasher,
	notifier *notification.NotificationManager,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		users:      users,
		twoFactor:  twoFactor,
		tokens:     tokens,
		challenges: challenges,
		totp:       totpEngine,
		hasher:     hasher,
		notifier:   notifier,
		logger:     slog.Default(),
		stepUpTTL:  challenge.DefaultStepUpTTL,
		resetTTL:   challenge.DefaultResetTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user account and sends a confirmation notice
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (UserInfo, error) {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return UserInfo{}, idmerr.InvalidInput("email", "not a valid email address")
	}
	if len(params.Password) < minPasswordLength {
		return UserInfo{}, idmerr.InvalidInput("password", "must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return UserInfo{}, idmerr.InternalWrap(err, "failed to hash password")
	}

	user, err := s.users.CreateUser(ctx, CreateUserParams{
		Email:        params.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return UserInfo{}, idmerr.Conflict("email already registered")
		}
		return UserInfo{}, idmerr.InternalWrap(err, "failed to create user")
	}

	err = s.notifier.Send(notification.RegisterConfirmationNotice, notification.NotificationData{
		To:   user.Email,
		Data: map[string]string{"Email": user.Email},
	})
	if err != nil {
		// The account exists either way; a failed confirmation mail is
		// logged but does not roll back registration.
		s.logger.Error("failed to send registration confirmation", "user_id", user.ID, "err", err)
	}

	s.logger.Info("registered user", "user_id", user.ID)
	return toUserInfo(user), nil
}

// Login verifies a password credential. Accounts without two-factor get
// a token pair immediately; enrolled accounts get a short-lived step-up
// challenge instead and complete login through VerifyStepUp.
func (s *AuthService) Login(ctx context.Context, email, pw string) (LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info("login attempt for unknown email")
			return LoginResult{}, idmerr.New(idmerr.ErrCodeInvalidCredentials, genericCredentialMsg)
		}
		return LoginResult{}, idmerr.InternalWrap(err, "failed to load user")
	}

	match, err := s.hasher.Verify(pw, user.PasswordHash)
	if err != nil {
		return LoginResult{}, idmerr.InternalWrap(err, "failed to verify password")
	}
	if !match {
		s.logger.Info("login password mismatch", "user_id", user.ID)
		return LoginResult{}, idmerr.New(idmerr.ErrCodeInvalidCredentials, genericCredentialMsg)
	}

	enabled, err := s.twoFactorEnabled(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if enabled {
		envelope, err := s.challenges.Issue(ctx, user.ID, challenge.PurposeStepUp, s.stepUpTTL)
		if err != nil {
			return LoginResult{}, err
		}
		s.logger.Info("login requires step-up", "user_id", user.ID)
		return LoginResult{
			RequiresStepUp: true,
			EnvelopeToken:  envelope,
			User:           toUserInfo(user),
		}, nil
	}

	tokens, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.Info("login succeeded", "user_id", user.ID)
	return LoginResult{Tokens: tokens, User: toUserInfo(user)}, nil
}

// VerifyStepUp completes a two-factor login: it consumes the step-up
// challenge carried by the envelope token, verifying the one-time code
// before the challenge is cleared so a mistyped code can be retried
// against the same challenge.
func (s *AuthService) VerifyStepUp(ctx context.Context, envelope, code string) (TokenPair, error) {
	userID, err := s.challenges.Consume(ctx, envelope, challenge.PurposeStepUp, s.totpCheck(code))
	if err != nil {
		return TokenPair{}, err
	}

	tokens, err := s.issueTokenPair(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}

	s.logger.Info("step-up verified", "user_id", userID)
	return tokens, nil
}

// RefreshAccessToken re-issues an access token from a valid refresh token
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.RefreshAccessToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh rejected", "err", err)
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// EnableTwoFactor enrolls the user in TOTP two-factor. The generated
// secret and recovery codes are returned once and never re-derivable:
// losing them means disabling and re-enrolling.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID uuid.UUID) (EnableTwoFactorResult, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return EnableTwoFactorResult{}, idmerr.NotFound("user", userID.String())
		}
		return EnableTwoFactorResult{}, idmerr.InternalWrap(err, "failed to load user")
	}

	secret, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return EnableTwoFactorResult{}, idmerr.InternalWrap(err, "failed to generate TOTP secret")
	}
	recoveryCodes := s.totp.GenerateRecoveryCodes()

	_, err = s.twoFactor.CreateEnrollment(ctx, TwoFactorEntity{
		UserID:        user.ID,
		SecretKey:     secret,
		IsEnabled:     true,
		RecoveryCodes: recoveryCodes,
	})
	if err != nil {
		if errors.Is(err, ErrEnrollmentExists) {
			return EnableTwoFactorResult{}, idmerr.Conflict("two-factor already enabled")
		}
		return EnableTwoFactorResult{}, idmerr.InternalWrap(err, "failed to store enrollment")
	}

	s.logger.Info("two-factor enabled", "user_id", user.ID)
	return EnableTwoFactorResult{Secret: secret, RecoveryCodes: recoveryCodes}, nil
}

// DisableTwoFactor removes the user's enrollment and discards any
// pending step-up challenge. Disabling an account that was never
// enrolled is a no-op and reports false.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID uuid.UUID) (bool, error) {
	removed, err := s.twoFactor.DeleteEnrollment(ctx, userID)
	if err != nil {
		return false, idmerr.InternalWrap(err, "failed to delete enrollment")
	}
	if removed {
		if err := s.challenges.Invalidate(ctx, userID, challenge.PurposeStepUp); err != nil {
			return false, err
		}
		s.logger.Info("two-factor disabled", "user_id", userID)
	}
	return removed, nil
}

// ForgotPassword starts a password reset. For accounts without
// two-factor a reset link is mailed directly; enrolled accounts must
// first pass a step-up verification (see VerifyResetStepUp). An unknown
// email produces no error so the response cannot be used to probe which
// addresses have accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (ForgotPasswordResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return ForgotPasswordResult{}, nil
		}
		return ForgotPasswordResult{}, idmerr.InternalWrap(err, "failed to load user")
	}

	enabled, err := s.twoFactorEnabled(ctx, user.ID)
	if err != nil {
		return ForgotPasswordResult{}, err
	}
	if enabled {
		envelope, err := s.challenges.Issue(ctx, user.ID, challenge.PurposeStepUp, s.stepUpTTL)
		if err != nil {
			return ForgotPasswordResult{}, err
		}
		s.logger.Info("password reset requires step-up", "user_id", user.ID)
		return ForgotPasswordResult{
			RedirectToVerification: true,
			EnvelopeToken:          envelope,
		}, nil
	}

	if err := s.sendResetLink(ctx, user); err != nil {
		return ForgotPasswordResult{}, err
	}
	return ForgotPasswordResult{Sent: true}, nil
}

// VerifyResetStepUp completes the step-up gate in front of a password
// reset for a two-factor account, then mails the reset link.
func (s *AuthService) VerifyResetStepUp(ctx context.Context, envelope, code string) error {
	userID, err := s.challenges.Consume(ctx, envelope, challenge.PurposeStepUp, s.totpCheck(code))
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return idmerr.InternalWrap(err, "failed to load user")
	}
	return s.sendResetLink(ctx, user)
}

// ResetPassword consumes a reset challenge and installs the new
// password. Any pending step-up challenge is discarded so nothing
// issued before the reset can still complete a login.
func (s *AuthService) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	if params.NewPassword != params.RepeatPassword {
		return idmerr.InvalidInput("password", "passwords do not match")
	}
	if len(params.NewPassword) < minPasswordLength {
		return idmerr.InvalidInput("password", "must be at least 8 characters")
	}

	userID, err := s.challenges.Consume(ctx, params.EnvelopeToken, challenge.PurposeReset, nil)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return idmerr.InternalWrap(err, "failed to hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return idmerr.InternalWrap(err, "failed to update password")
	}

	if err := s.challenges.Invalidate(ctx, userID, challenge.PurposeStepUp); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return idmerr.InternalWrap(err, "failed to load user")
	}
	err = s.notifier.Send(notification.PasswordResetConfirmNotice, notification.NotificationData{
		To:   user.Email,
		Data: map[string]string{"Email": user.Email},
	})
	if err != nil {
		s.logger.Error("failed to send reset confirmation", "user_id", userID, "err", err)
	}

	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}

func (s *AuthService) sendResetLink(ctx context.Context, user UserEntity) error {
	envelope, err := s.challenges.Issue(ctx, user.ID, challenge.PurposeReset, s.resetTTL)
	if err != nil {
		return err
	}

	link := s.notifier.BaseUrl + "/reset-password?token=" + envelope
	err = s.notifier.Send(notification.PasswordResetInitNotice, notification.NotificationData{
		To: user.Email,
		Data: map[string]string{
			"Email": user.Email,
			"Link":  link,
		},
	})
	if err != nil {
		return idmerr.InternalWrap(err, "failed to send reset link")
	}

	s.logger.Info("password reset link sent", "user_id", user.ID)
	return nil
}

// totpCheck builds the second-factor hook used while consuming a
// step-up challenge. It runs after the challenge value matched, so a
// wrong code does not burn the challenge.
func (s *AuthService) totpCheck(code string) challenge.SecondFactorCheck {
	return func(ctx context.Context, userID uuid.UUID) error {
		entity, err := s.twoFactor.GetEnrollmentByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrEnrollmentNotFound) {
				return idmerr.New(idmerr.ErrCode2FAInvalid, "no two-factor enrollment")
			}
			return idmerr.InternalWrap(err, "failed to load enrollment")
		}
		if !entity.IsEnabled {
			return idmerr.New(idmerr.ErrCode2FAInvalid, "two-factor not enabled")
		}
		if !s.totp.VerifyCode(entity.SecretKey, code) {
			return idmerr.New(idmerr.ErrCode2FAInvalid, "one-time code rejected")
		}
		return nil
	}
}

func (s *AuthService) twoFactorEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	entity, err := s.twoFactor.GetEnrollmentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return false, nil
		}
		return false, idmerr.InternalWrap(err, "failed to load enrollment")
	}
	return entity.IsEnabled, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return TokenPair{}, idmerr.InternalWrap(err, "failed to issue access token")
	}
	refresh, refreshExp, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return TokenPair{}, idmerr.InternalWrap(err, "failed to issue refresh token")
	}

	// Refresh tokens exceed bcrypt's 72-byte input limit, so the stored
	// verifier is a SHA-256 digest of the token instead of a bcrypt hash.
	// The token has full JWT entropy, which makes the plain digest safe.
	if err := s.users.UpdateRefreshTokenHash(ctx, userID, hashToken(refresh)); err != nil {
		return TokenPair{}, idmerr.InternalWrap(err, "failed to store refresh token hash")
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func toUserInfo(user UserEntity) UserInfo {
	return UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
