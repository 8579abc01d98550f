package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	identityService      = "identity-service"
	useCaseRegister      = "identity.register"
	useCaseIssueToken    = "identity.token"
	useCaseRefreshToken  = "identity.token_refresh"
	useCaseEnsureStaff   = "identity.ensure_staff"
	msgUsernameDuplicate = "A user with that username already exists."
)

var (
	ErrInvalidCredentials = user.ErrInvalidCredentials
	ErrInvalidToken       = errors.New("identity: token is invalid or expired")
	ErrRepository         = errors.New("identity: repository failure")
)

type Service struct {
	users  user.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	inst   *application.Instrument
}

func NewService(users user.Repository, hasher PasswordHasher, tokens TokenIssuer, tel observability.Observability) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		inst:   application.NewInstrument(tel, identityService),
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a regular (non-staff) account.
func (s *Service) Register(ctx context.Context, cmd RegisterInput) (_ *user.User, err error) {
	ctx, run := s.inst.Start(ctx, useCaseRegister, "Register")
	defer func() { run.End(err) }()

	email := strings.TrimSpace(cmd.Email)
	if err := user.ValidateRegistration(cmd.Username, email, cmd.Password); err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, cmd.Username); err == nil {
		run.Fail("USERNAME_TAKEN")
		return nil, validation.New("username", msgUsernameDuplicate)
	} else if !errors.Is(err, user.ErrNotFound) {
		run.Fail("USER_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	u, err := s.newUser(cmd.Username, email, cmd.Password, false)
	if err != nil {
		run.Fail("PASSWORD_HASH_FAILED")
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrUserExists) {
			run.Fail("USERNAME_TAKEN")
			return nil, validation.New("username", msgUsernameDuplicate)
		}
		run.Fail("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Field("user_id", u.ID)
	return u, nil
}

type TokenPair struct {
	Access  string
	Refresh string
}

// IssueToken exchanges credentials for an access/refresh pair. Unknown users,
// inactive users and wrong passwords are indistinguishable to the caller.
func (s *Service) IssueToken(ctx context.Context, username, password string) (_ *TokenPair, err error) {
	ctx, run := s.inst.Start(ctx, useCaseIssueToken, "IssueToken")
	defer func() { run.End(err) }()

	if username == "" || password == "" {
		errs := validation.Errors{}
		if username == "" {
			errs.Add("username", "This field is required.")
		}
		if password == "" {
			errs.Add("password", "This field is required.")
		}
		run.Fail("VALIDATION_FAILED")
		return nil, errs
	}

	u, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, user.ErrNotFound):
		run.Fail("INVALID_CREDENTIALS")
		return nil, ErrInvalidCredentials
	case err != nil:
		run.Fail("USER_LOOKUP_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if !u.IsActive || !s.hasher.Verify(password, u.PasswordHash) {
		run.Fail("INVALID_CREDENTIALS")
		return nil, ErrInvalidCredentials
	}

	principal := u.Principal()
	access, err := s.tokens.GenerateAccessToken(principal)
	if err != nil {
		run.Fail("TOKEN_SIGN_FAILED")
		return nil, fmt.Errorf("identity: sign access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(principal)
	if err != nil {
		run.Fail("TOKEN_SIGN_FAILED")
		return nil, fmt.Errorf("identity: sign refresh token: %w", err)
	}
	run.Span().SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	run.Field("user_id", u.ID)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// RefreshToken issues a new access token for a valid refresh token whose user
// is still active.
func (s *Service) RefreshToken(ctx context.Context, refresh string) (_ string, err error) {
	ctx, run := s.inst.Start(ctx, useCaseRefreshToken, "RefreshToken")
	defer func() { run.End(err) }()

	if refresh == "" {
		run.Fail("VALIDATION_FAILED")
		return "", validation.New("refresh", "This field is required.")
	}
	claims, err := s.tokens.ValidateRefreshToken(refresh)
	if err != nil {
		run.Fail("TOKEN_INVALID")
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		run.Fail("USER_GONE")
		return "", ErrInvalidToken
	case err != nil:
		run.Fail("USER_LOOKUP_FAILED")
		return "", fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if !u.IsActive {
		run.Fail("USER_INACTIVE")
		return "", ErrInvalidToken
	}

	access, err := s.tokens.GenerateAccessToken(u.Principal())
	if err != nil {
		run.Fail("TOKEN_SIGN_FAILED")
		return "", fmt.Errorf("identity: sign access token: %w", err)
	}
	run.Field("user_id", u.ID)
	return access, nil
}

// EnsureStaff makes sure a staff account named username exists. An existing
// account is promoted but keeps its password.
func (s *Service) EnsureStaff(ctx context.Context, username, email, password string) (err error) {
	ctx, run := s.inst.Start(ctx, useCaseEnsureStaff, "EnsureStaff")
	defer func() { run.End(err) }()

	u, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if u.IsStaff {
			run.Status("ALREADY_STAFF")
			return nil
		}
		u.IsStaff = true
		if err := s.users.Update(ctx, u); err != nil {
			run.Fail("REPO_UPDATE_FAILED")
			return fmt.Errorf("%w: %w", ErrRepository, err)
		}
		run.Status("PROMOTED")
		return nil
	case !errors.Is(err, user.ErrNotFound):
		run.Fail("USER_LOOKUP_FAILED")
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}

	if err := user.ValidateRegistration(username, email, password); err != nil {
		run.Fail("VALIDATION_FAILED")
		return err
	}
	u, err = s.newUser(username, email, password, true)
	if err != nil {
		run.Fail("PASSWORD_HASH_FAILED")
		return err
	}
	if err := s.users.Create(ctx, u); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Status("CREATED")
	return nil
}

func (s *Service) newUser(username, email, password string, staff bool) (*user.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	return &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      staff,
		IsActive:     true,
	}, nil
}
