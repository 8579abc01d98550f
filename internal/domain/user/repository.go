package user

import "context"

type Repository interface {
	// Create returns ErrUserExists when the username is taken.
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
