package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Identity{UserID: "11111111-1111-1111-1111-111111111111", Email: "alice@example.com", DisplayName: "Alice"}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("test-secret", time.Hour, alice)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := ValidateToken("test-secret", token)

	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("secret1", time.Hour, alice)
	require.NoError(t, err)

	_, err = ValidateToken("secret2", token)

	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateToken_Malformed(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, alice)
	require.NoError(t, err)

	_, err = ValidateToken("secret", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_MissingSubject(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, Identity{Email: "x@example.com"})
	require.NoError(t, err)

	_, err = ValidateToken("secret", token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(t.Context())
	assert.False(t, ok)

	ctx := WithIdentity(t.Context(), alice)
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, alice, got)
}
