package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depothub/traindepot/pkg/utils"
)

const uniqueViolationCode = "23505"

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-based user repository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// CreateUser stores a new user
func (r *PostgresUserRepository) CreateUser(ctx context.Context, params CreateUserParams) (UserEntity, error) {
	user := UserEntity{
		ID:           uuid.New(),
		Email:        strings.ToLower(params.Email),
		PasswordHash: params.PasswordHash,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 RETURNING created_at, updated_at`,
		user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return UserEntity{}, ErrEmailTaken
		}
		return UserEntity{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the user with the given email
func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (UserEntity, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, email, password, COALESCE(refresh_token_hash, ''), created_at, updated_at
		 FROM users WHERE email = $1`,
		strings.ToLower(email)))
}

// GetUserByID returns the user with the given id
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (UserEntity, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, email, password, COALESCE(refresh_token_hash, ''), created_at, updated_at
		 FROM users WHERE id = $1`,
		id))
}

// UpdateRefreshTokenHash replaces the stored refresh token hash. An
// empty hash stores NULL, clearing the verifier.
func (r *PostgresUserRepository) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`,
		id, utils.ToNullString(hash))
	if err != nil {
		return fmt.Errorf("failed to update refresh token hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = now() WHERE id = $1`,
		id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (UserEntity, error) {
	var user UserEntity
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.RefreshTokenHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserEntity{}, ErrUserNotFound
		}
		return UserEntity{}, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// PostgresTwoFactorRepository implements TwoFactorRepository using PostgreSQL
type PostgresTwoFactorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTwoFactorRepository creates a new PostgreSQL-based enrollment repository
func NewPostgresTwoFactorRepository(pool *pgxpool.Pool) *PostgresTwoFactorRepository {
	return &PostgresTwoFactorRepository{pool: pool}
}

// CreateEnrollment stores a new enrollment
func (r *PostgresTwoFactorRepository) CreateEnrollment(ctx context.Context, entity TwoFactorEntity) (TwoFactorEntity, error) {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO two_factor (id, user_id, secret_key, is_enabled, recovery_codes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING created_at, updated_at`,
		entity.ID, entity.UserID, entity.SecretKey, entity.IsEnabled, entity.RecoveryCodes).
		Scan(&entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return TwoFactorEntity{}, ErrEnrollmentExists
		}
		return TwoFactorEntity{}, fmt.Errorf("failed to create enrollment: %w", err)
	}
	return entity, nil
}

// GetEnrollmentByUserID returns the user's enrollment
func (r *PostgresTwoFactorRepository) GetEnrollmentByUserID(ctx context.Context, userID uuid.UUID) (TwoFactorEntity, error) {
	var entity TwoFactorEntity
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, secret_key, is_enabled, recovery_codes, created_at, updated_at
		 FROM two_factor WHERE user_id = $1`,
		userID).Scan(&entity.ID, &entity.UserID, &entity.SecretKey, &entity.IsEnabled, &entity.RecoveryCodes, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TwoFactorEntity{}, ErrEnrollmentNotFound
		}
		return TwoFactorEntity{}, fmt.Errorf("failed to load enrollment: %w", err)
	}
	return entity, nil
}

// DeleteEnrollment removes the user's enrollment if present
func (r *PostgresTwoFactorRepository) DeleteEnrollment(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM two_factor WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete enrollment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
