package identity

import (
	"context"
	"time"
)

// User is the notes API's security principal.
type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// UserAuth pairs a user with its stored password hash (login only).
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration. PasswordHash is produced by the caller's hasher;
// the store never sees a plaintext password.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store is the user persistence boundary.
type Store interface {
	// CreateUser inserts a user. A duplicate email returns a ConflictError{Field: "email"}.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserAuthByEmail returns the user and password hash, or ErrNotFound.
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	// GetUserByID returns the user or ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (User, error)
}

func validateCreate(op string, in CreateUserInput) (CreateUserInput, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := ValidateEmail(in.Email); err != nil {
		return in, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid email"}
	}
	if in.PasswordHash == "" {
		return in, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}
