package users

import (
	"context"
	"errors"
)

// ErrLoginTaken is returned by Upsert when another user already has the login.
var ErrLoginTaken = errors.New("login already taken")

// UserRepo stores identities. Lookups of unknown users return an error
// matching apperrors.ErrUserNotFound.
type UserRepo interface {
	Upsert(ctx context.Context, user *User) error
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
