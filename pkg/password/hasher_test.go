package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("Secr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!", hash)

	valid, err := hasher.Verify("Secr3t!", hash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestBcryptHasher_VerifyWrongPassword(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	valid, err := hasher.Verify("battery staple", hash)
	require.NoError(t, err, "a wrong password is not an error")
	assert.False(t, valid)
}

func TestBcryptHasher_HashesAreSalted(t *testing.T) {
	hasher := NewBcryptHasher()

	hash1, err := hasher.Hash("same password")
	require.NoError(t, err)
	hash2, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	hasher := NewBcryptHasher()

	_, err := hasher.Verify("anything", "not-a-bcrypt-digest")
	assert.Error(t, err)
}

func TestBcryptHasher_EmptyInputs(t *testing.T) {
	hasher := NewBcryptHasher()

	_, err := hasher.Hash("")
	assert.Error(t, err)

	_, err = hasher.Verify("", "some-hash")
	assert.Error(t, err)
}

func TestBcryptHasher_WithCost(t *testing.T) {
	hasher := NewBcryptHasher(WithCost(4))

	hash, err := hasher.Hash("fast test hash")
	require.NoError(t, err)

	valid, err := hasher.Verify("fast test hash", hash)
	require.NoError(t, err)
	assert.True(t, valid)
}
