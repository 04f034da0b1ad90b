package session

import (
	"context"
	"time"

	"notes/cmd/identity"
)

// Grant mirrors a refresh_tokens row. ExpiresAt is unix seconds and, together with
// UserID, is the lookup key derived from the refresh token itself.
type Grant struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt int64
}

// Redemption is the outcome of Store.RedeemGrant.
type Redemption struct {
	// Valid is true when exactly one grant matched the key and its hash verified.
	// That grant has been deleted.
	Valid bool

	// Revoked is the number of grants deleted because the token was not valid.
	Revoked int64
}

// Store abstracts persistence for refresh grants.
//
// Implementations must make RedeemGrant atomic: two concurrent redemptions of the same
// key observe exactly one Valid result.
type Store interface {
	// CreateGrant inserts a grant. A (user, expiry) collision returns ErrGrantExists.
	CreateGrant(ctx context.Context, g Grant) error

	// RedeemGrant loads the grants for (userID, expiresAt), and either consumes the single
	// matching grant or, when the token is not valid, deletes every grant of the user.
	RedeemGrant(ctx context.Context, userID, expiresAt int64, match func(hash string) bool) (Redemption, error)

	// RevokeAll deletes every grant of the user and returns how many were removed.
	RevokeAll(ctx context.Context, userID int64) (int64, error)

	// CountGrants returns the number of live grant rows for a user.
	CountGrants(ctx context.Context, userID int64) (int64, error)
}

// UserStore is the slice of identity.Store the manager needs.
type UserStore interface {
	CreateUser(ctx context.Context, in identity.CreateUserInput) (identity.User, error)
	GetUserAuthByEmail(ctx context.Context, email string) (identity.UserAuth, error)
}

// PasswordHasher is satisfied by password.Config.
type PasswordHasher interface {
	Hash(password string) (string, error)
	HashSecret(secret string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}

// Issued is the result of a login or a rotation.
type Issued struct {
	UserID       int64
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}
