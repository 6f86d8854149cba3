package authflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already taken")
	ErrEnrollmentNotFound = errors.New("two-factor enrollment not found")
	ErrEnrollmentExists   = errors.New("two-factor enrollment already exists")
)

// UserEntity represents a user record in the domain model
type UserEntity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	// RefreshTokenHash is the hash of the most recently issued refresh
	// token, replaced on every successful login. The raw token is never
	// persisted.
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TwoFactorEntity represents a user's two-factor enrollment. There is at
// most one per user; the secret key is generated exactly once at
// enrollment and never re-derived.
type TwoFactorEntity struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	SecretKey     string
	IsEnabled     bool
	RecoveryCodes []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateUserParams represents parameters for creating a user
type CreateUserParams struct {
	Email        string
	PasswordHash string
}

// UserRepository defines the storage contract for users
type UserRepository interface {
	// CreateUser stores a new user. Returns ErrEmailTaken when the
	// email is already registered.
	CreateUser(ctx context.Context, params CreateUserParams) (UserEntity, error)

	// GetUserByEmail returns the user with the given email, or
	// ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (UserEntity, error)

	// GetUserByID returns the user with the given id, or ErrUserNotFound.
	GetUserByID(ctx context.Context, id uuid.UUID) (UserEntity, error)

	// UpdateRefreshTokenHash replaces the stored refresh token hash.
	UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// TwoFactorRepository defines the storage contract for two-factor enrollments
type TwoFactorRepository interface {
	// CreateEnrollment stores a new enrollment. Returns
	// ErrEnrollmentExists when the user already has one.
	CreateEnrollment(ctx context.Context, entity TwoFactorEntity) (TwoFactorEntity, error)

	// GetEnrollmentByUserID returns the user's enrollment, or
	// ErrEnrollmentNotFound.
	GetEnrollmentByUserID(ctx context.Context, userID uuid.UUID) (TwoFactorEntity, error)

	// DeleteEnrollment removes the user's enrollment if present and
	// reports whether anything was removed. Idempotent.
	DeleteEnrollment(ctx context.Context, userID uuid.UUID) (bool, error)
}
