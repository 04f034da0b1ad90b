package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAlreadyRegistered is returned by Register when the email is taken.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrInvalidInput is returned for malformed registration or login input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRefreshToken is returned when no refresh token was presented.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrInvalidRefreshToken is returned when a refresh token does not match exactly one grant.
	// All grants of the user have been revoked by the time the caller sees it.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken is returned when a genuine refresh token has lapsed.
	// Its grant has already been consumed.
	ErrExpiredRefreshToken = errors.New("expired refresh token")

	// ErrInvalidToken is returned when an access token fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a JWT is past its exp claim.
	ErrTokenExpired = errors.New("token expired")

	// ErrMalformedToken is returned when a value cannot be decoded as one of our JWTs.
	ErrMalformedToken = errors.New("malformed token")

	// ErrGrantExists is returned by Store.CreateGrant on a (user, expiry) collision.
	ErrGrantExists = errors.New("grant exists")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// InputError describes which field of a request was rejected. It unwraps to ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e InputError) Unwrap() error { return ErrInvalidInput }
