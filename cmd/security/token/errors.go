package token

import "errors"

var (
	ErrKeyMissing  = errors.New("token: digest key missing")
	ErrKeyTooShort = errors.New("token: digest key too short")
)
