package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords is a tiny deny list, checked case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"qwerty":      {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"letmein":     {},
	"iloveyou":    {},
	"abc12345":    {},
	"123456789":   {},
}

// Validate checks the password against the policy. Length is counted in runes; the
// 72-byte bcrypt limit applies on top of MaxLength.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength, len(password) > maxInputBytes:
		return ErrPasswordTooLong
	case c.Policy.RejectVeryWeak && isTrivial(password):
		return ErrWeakPassword
	}
	return nil
}

// isTrivial flags a repeated single character, a short all-digit PIN, or a deny-listed word.
func isTrivial(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	if strings.Trim(s, string(first)) == "" {
		return true
	}

	if utf8.RuneCountInString(s) < 12 && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return true
	}

	_, common := commonPasswords[strings.ToLower(s)]
	return common
}
