package user

import (
	"context"
	"errors"
	"time"
)

// ErrNoSuchUser failed to validate the credential
var ErrNoSuchUser = errors.New("No such user or password is incorrect")

// ErrDuplicatedUser unique key constraint violation
var ErrDuplicatedUser = errors.New("Username or email is already registered")

// ErrUserTooManyRetry login attempts exceeded the configured maximum
var ErrUserTooManyRetry = errors.New("Too many login attempts, try again later")

// UserModel stable identity exposed by the credential service
type UserModel struct {
	ID         string     `json:"id"`
	Username   string     `json:"username" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password,omitempty" validate:"required,min=8"`
	LoginRetry int        `json:"-"`
	LastLogin  int64      `json:"-"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// UserUseCase application level user operations
type UserUseCase interface {
	SignUp(ctx context.Context, post *UserModel) (*UserModel, error)
	Exists(ctx context.Context, post *UserModel) (bool, error)
}

// UserRepository persistence contract for user records
type UserRepository interface {
	FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error)
	UpdateUser(ctx context.Context, post *UserModel) error
	SaveUser(ctx context.Context, post *UserModel) error
}
