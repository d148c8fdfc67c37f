package jwt

import (
	"Surplus-Share-Backend/domain"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret")

	token, err := svc.GenerateTokenUser("3f0c7a52-1d0e-4b8a-9d41-6a2f1b7c9e10", "donor")
	require.NoError(t, err)

	id, role, err := svc.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "3f0c7a52-1d0e-4b8a-9d41-6a2f1b7c9e10", id)
	assert.Equal(t, "donor", role)
}

func TestGetUserIDByTokenRejectsForeignSignature(t *testing.T) {
	token, err := NewJWTService("other").GenerateTokenUser("u1", "receiver")
	require.NoError(t, err)

	_, _, err = NewJWTService("secret").GetUserIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestGetUserIDByTokenExpired(t *testing.T) {
	svc := NewJWTService("secret").(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }

	token, err := svc.GenerateTokenUser("u1", "donor")
	require.NoError(t, err)

	_, _, err = svc.GetUserIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestGetUserIDByTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := jwtUserClaim{UserID: "u1", Role: "donor"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = NewJWTService("secret").GetUserIDByToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := NewJWTService("").GenerateTokenUser("u1", "donor")
	assert.Error(t, err)
}
