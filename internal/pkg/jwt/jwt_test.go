package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var issuedAt = time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)

func TestGenerateAndValidate(t *testing.T) {
	tok, claims, err := GenerateAccessToken(42, secret, issuedAt, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	got, err := ValidateAccessToken(tok, secret, issuedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, claims.ID, got.ID)
}

func TestValidate_Expired(t *testing.T) {
	tok, _, err := GenerateAccessToken(1, secret, issuedAt, time.Hour)
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok, secret, issuedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = ValidateAccessToken(tok, secret, issuedAt.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_BadSignatureWinsOverExpiry(t *testing.T) {
	tok, _, err := GenerateAccessToken(1, secret, issuedAt, time.Hour)
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok, "other-secret", issuedAt.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidate_Malformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b.c", strings.Repeat("x", 300)} {
		_, err := ValidateAccessToken(tok, secret, issuedAt)
		assert.ErrorIs(t, err, ErrTokenInvalid, tok)
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			Issuer:    Issuer,
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok, secret, issuedAt)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, err = jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ValidateAccessToken(tok, secret, issuedAt)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifySignature_IgnoresExpiry(t *testing.T) {
	tok, _, err := GenerateAccessToken(7, secret, issuedAt.Add(-72*time.Hour), time.Hour)
	require.NoError(t, err)

	claims, err := VerifySignature(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	_, err = VerifySignature(tok, "nope")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
