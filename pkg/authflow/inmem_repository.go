package authflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]UserEntity
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]UserEntity),
	}
}

// CreateUser stores a new user
func (r *InMemoryUserRepository) CreateUser(ctx context.Context, params CreateUserParams) (UserEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(params.Email)
	for _, user := range r.users {
		if user.Email == email {
			return UserEntity{}, ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	user := UserEntity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return user, nil
}

// GetUserByEmail returns the user with the given email
func (r *InMemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (UserEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return UserEntity{}, ErrUserNotFound
}

// GetUserByID returns the user with the given id
func (r *InMemoryUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (UserEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return UserEntity{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateRefreshTokenHash replaces the stored refresh token hash
func (r *InMemoryUserRepository) UpdateRefreshTokenHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshTokenHash = hash
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *InMemoryUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// InMemoryTwoFactorRepository implements TwoFactorRepository using
// in-memory storage
type InMemoryTwoFactorRepository struct {
	mu          sync.RWMutex
	enrollments map[uuid.UUID]TwoFactorEntity // keyed by user id
}

// NewInMemoryTwoFactorRepository creates a new in-memory enrollment repository
func NewInMemoryTwoFactorRepository() *InMemoryTwoFactorRepository {
	return &InMemoryTwoFactorRepository{
		enrollments: make(map[uuid.UUID]TwoFactorEntity),
	}
}

// CreateEnrollment stores a new enrollment
func (r *InMemoryTwoFactorRepository) CreateEnrollment(ctx context.Context, entity TwoFactorEntity) (TwoFactorEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.enrollments[entity.UserID]; exists {
		return TwoFactorEntity{}, ErrEnrollmentExists
	}

	now := time.Now().UTC()
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	entity.CreatedAt = now
	entity.UpdatedAt = now
	r.enrollments[entity.UserID] = entity
	return entity, nil
}

// GetEnrollmentByUserID returns the user's enrollment
func (r *InMemoryTwoFactorRepository) GetEnrollmentByUserID(ctx context.Context, userID uuid.UUID) (TwoFactorEntity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.enrollments[userID]
	if !ok {
		return TwoFactorEntity{}, ErrEnrollmentNotFound
	}
	return entity, nil
}

// DeleteEnrollment removes the user's enrollment if present
func (r *InMemoryTwoFactorRepository) DeleteEnrollment(ctx context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.enrollments[userID]
	delete(r.enrollments, userID)
	return ok, nil
}
