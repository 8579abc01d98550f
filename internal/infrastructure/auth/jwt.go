// Package auth signs and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrExpiredToken = errors.New("auth: token has expired")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		AccessTokenDuration:  60 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
		Issuer:               "storefront",
	}
}

type Claims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	IsStaff   bool   `json:"is_staff"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() *user.Principal {
	return &user.Principal{UserID: c.UserID, Username: c.Username, IsStaff: c.IsStaff}
}

// JWTManager issues HS256 access/refresh pairs.
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config, now: time.Now}
}

func (m *JWTManager) GenerateAccessToken(p user.Principal) (string, error) {
	return m.generate(p, tokenTypeAccess, m.config.AccessTokenDuration)
}

func (m *JWTManager) GenerateRefreshToken(p user.Principal) (string, error) {
	return m.generate(p, tokenTypeRefresh, m.config.RefreshTokenDuration)
}

func (m *JWTManager) generate(p user.Principal, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    p.UserID,
		Username:  p.Username,
		IsStaff:   p.IsStaff,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.SecretKey))
}

func (m *JWTManager) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken returns the caller carried by a bearer token.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*user.Principal, error) {
	claims, err := m.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

func (m *JWTManager) ValidateRefreshToken(tokenString string) (*user.Principal, error) {
	claims, err := m.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}
