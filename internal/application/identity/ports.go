package identity

import "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer signs access and refresh tokens for a principal.
type TokenIssuer interface {
	GenerateAccessToken(p user.Principal) (string, error)
	GenerateRefreshToken(p user.Principal) (string, error)
	ValidateRefreshToken(token string) (*user.Principal, error)
}
