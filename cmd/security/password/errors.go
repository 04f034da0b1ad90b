package password

import "errors"

// Policy errors read as the reason half of a "password: <reason>" message.
var (
	ErrPasswordTooShort = errors.New("is too short")
	ErrPasswordTooLong  = errors.New("is too long")
	ErrWeakPassword     = errors.New("is too easy to guess")
)

var (
	ErrInvalidHash   = errors.New("password: invalid bcrypt hash")
	ErrInvalidSecret = errors.New("password: secret exceeds the bcrypt input limit")
)
