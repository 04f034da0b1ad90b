package identity

import (
	"net/mail"
	"strings"
)

const maxEmailLen = 254

// NormalizeEmail trims surrounding whitespace. Case is preserved: emails are case-sensitive as stored.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

// ValidateEmail accepts a bare addr-spec ("user@example.com"), not a display-name form.
func ValidateEmail(email string) error {
	const op = "identity.ValidateEmail"

	if email == "" || len(email) > maxEmailLen {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "email length"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "email format"}
	}
	return nil
}
