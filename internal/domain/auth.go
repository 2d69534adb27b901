package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("an user with this email already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidPassword    = errors.New("password does not meet requirements")
	ErrInvalidCredentials = errors.New("email or password is wrong")
	ErrPageOutOfRange     = errors.New("page is out of range")
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is what the guard attaches to a request once the bearer has
// been validated and resolved to a live user.
type Identity struct {
	UserID string
	Role   Role
}

func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}
