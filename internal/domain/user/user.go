package user

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/validation"
)

var (
	ErrNotFound           = errors.New("user: not found")
	ErrUserExists         = errors.New("user: username already taken")
	ErrInvalidCredentials = errors.New("user: no active account found with the given credentials")
)

const MaxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type User struct {
	ID           uint
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	DateJoined   time.Time
}

// ValidateRegistration checks the sign-up payload. Email may be blank.
func ValidateRegistration(username, email, password string) error {
	errs := validation.Errors{}
	switch {
	case username == "":
		errs.Add("username", "This field is required.")
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		errs.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	case !usernamePattern.MatchString(username):
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if email = strings.TrimSpace(email); email != "" {
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			errs.Add("email", "Enter a valid email address.")
		}
	}
	if password == "" {
		errs.Add("password", "This field is required.")
	}
	return errs.Err()
}

// Principal is the authenticated caller carried by a verified token.
type Principal struct {
	UserID   uint
	Username string
	IsStaff  bool
}

func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Username: u.Username, IsStaff: u.IsStaff}
}
