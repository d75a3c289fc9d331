package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens(testSecret, 7*24*time.Hour)

	raw, err := tokens.Issue("665f1c2e8b3e4a0012345678", "asha@example.com")
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "665f1c2e8b3e4a0012345678", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyExpired(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issuedAt }

	raw, err := tokens.Issue("u1", "u1@example.com")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	raw, err := tokens.Issue("u1", "u1@example.com")
	require.NoError(t, err)

	other := NewTokens("another-secret-0123456789", time.Hour)

	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.Verify(strings.TrimSuffix(raw, raw[len(raw)-3:]))
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.Verify("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, CheckPassword(hash, "secret123"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrPasswordMismatch)
}
