package auth

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application/identity"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ identity.TokenIssuer    = (*JWTManager)(nil)
	_ identity.PasswordHasher = (*PasswordHasher)(nil)
)

func testManager() *JWTManager {
	cfg := DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	return NewJWTManager(cfg)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	p := user.Principal{UserID: 42, Username: "alice", IsStaff: true}

	access, err := m.GenerateAccessToken(p)
	require.NoError(t, err)

	got, err := m.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken, "access token is not a refresh token")
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := testManager()
	refresh, err := m.GenerateRefreshToken(user.Principal{UserID: 7, Username: "bob"})
	require.NoError(t, err)

	got, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)

	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := testManager()
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	access, err := m.GenerateAccessToken(user.Principal{UserID: 1})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRejectsForeignTokens(t *testing.T) {
	m := testManager()
	access, err := m.GenerateAccessToken(user.Principal{UserID: 1})
	require.NoError(t, err)

	other := NewJWTManager(JWTConfig{SecretKey: "other", AccessTokenDuration: time.Hour, Issuer: "storefront"})
	_, err = other.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1, "token_type": "access"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateAccessToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", "not-a-hash"))
}
