package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 10

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a plaintext password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A wrong password returns (false, nil); only a malformed digest
	// is an error.
	Verify(password, hashedPassword string) (bool, error)
}

// BcryptHasher implements Hasher using bcrypt with a configurable cost
type BcryptHasher struct {
	cost int
}

// BcryptOption configures a BcryptHasher
type BcryptOption func(*BcryptHasher)

// WithCost sets the bcrypt work factor
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		h.cost = cost
	}
}

// NewBcryptHasher creates a new BcryptHasher
func NewBcryptHasher(opts ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(password, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err // Malformed or corrupt digest
	}

	return true, nil
}
