package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func newTestTokenService(expiry time.Duration, issuer string) *JWTTokenService {
	return NewJWTTokenService(testJWTSecret, expiry, 7*24*time.Hour, issuer)
}

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := newTestTokenService(24*time.Hour, "wallet-ledger")
	userID := uuid.New()

	tokenStr, expiresAt, err := svc.Generate(userID, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestJWTTokenService_Refresh(t *testing.T) {
	svc := newTestTokenService(time.Hour, "wallet-ledger")
	userID := uuid.New()

	refresh, refreshExp, err := svc.GenerateRefresh(userID, "alice")
	require.NoError(t, err)
	_, accessExp, err := svc.Generate(userID, "alice")
	require.NoError(t, err)
	assert.True(t, refreshExp.After(accessExp), "refresh tokens outlive access tokens")

	claims, err := svc.ValidateRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestJWTTokenService_KindsAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(time.Hour, "wallet-ledger")

	access, _, err := svc.Generate(uuid.New(), "alice")
	require.NoError(t, err)
	refresh, _, err := svc.GenerateRefresh(uuid.New(), "alice")
	require.NoError(t, err)

	_, err = svc.Validate(refresh)
	assert.ErrorContains(t, err, "expected access token")
	_, err = svc.ValidateRefresh(access)
	assert.ErrorContains(t, err, "expected refresh token")

	untyped, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(), "username": "a", "iss": "wallet-ledger", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	_, err = svc.Validate(untyped)
	assert.Error(t, err)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	good := newTestTokenService(time.Hour, "wallet-ledger")

	expired, _, err := newTestTokenService(-time.Hour, "wallet-ledger").Generate(uuid.New(), "a")
	require.NoError(t, err)
	otherSecret, _, err := NewJWTTokenService("secret-2", time.Hour, time.Hour, "wallet-ledger").Generate(uuid.New(), "a")
	require.NoError(t, err)
	otherIssuer, _, err := newTestTokenService(time.Hour, "someone-else").Generate(uuid.New(), "a")
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(), "username": "a", "typ": "access", "iss": "wallet-ledger", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"none alg":     noneAlg,
		"garbage":      "not.a.valid.jwt",
		"empty":        "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := good.Validate(tok)
			assert.Error(t, err)
		})
	}
}
