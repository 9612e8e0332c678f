package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T, ttl time.Duration) (*JWTGenerator, *JWTValidator) {
	t.Helper()
	cfg := JWTConfig{SecretKey: "test-secret", Issuer: "ameliorate", Audience: []string{"ameliorate-api"}}
	gen, err := NewJWTGenerator(cfg, ttl)
	require.NoError(t, err)
	val, err := NewJWTValidator(cfg)
	require.NoError(t, err)
	return gen, val
}

func TestJWT_RoundTrip(t *testing.T) {
	gen, val := newTestPair(t, time.Hour)

	token, err := gen.GenerateToken("user-1", "one@example.com", []string{"user"})
	require.NoError(t, err)

	claims, err := val.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "one@example.com", claims.Email)
	assert.Equal(t, []string{"user"}, claims.Roles)
}

func TestJWT_Rejections(t *testing.T) {
	gen, val := newTestPair(t, time.Hour)

	t.Run("missing", func(t *testing.T) {
		_, err := val.ValidateToken("Bearer ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired, _ := newTestPair(t, time.Hour)
		expired.ttl = -time.Minute
		token, err := expired.GenerateToken("user-1", "", nil)
		require.NoError(t, err)

		_, err = val.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTGenerator(JWTConfig{SecretKey: "other", Issuer: "ameliorate", Audience: []string{"ameliorate-api"}}, time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateToken("user-1", "", nil)
		require.NoError(t, err)

		_, err = val.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTGenerator(JWTConfig{SecretKey: "test-secret", Issuer: "elsewhere", Audience: []string{"ameliorate-api"}}, time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateToken("user-1", "", nil)
		require.NoError(t, err)

		_, err = val.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{UserID: "user-1"}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = val.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := gen.GenerateToken("", "", nil)
		require.NoError(t, err)

		_, err = val.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, err := GetUserFromContext(ctx)
	assert.Error(t, err)

	ctx = SetUserInContext(ctx, &UserContext{UserID: "user-1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
}
