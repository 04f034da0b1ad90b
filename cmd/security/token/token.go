package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// MinKeyBytes is the minimum accepted HMAC key size.
const MinKeyBytes = 32

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// RefreshDigest returns the keyed digest of a raw refresh token.
func RefreshDigest(refreshToken string, key []byte) string {
	return HashHMACSHA256Hex(refreshToken, key)
}

// ValidateKey enforces a non-empty key of at least minBytes bytes.
// Bytes (not runes) are measured because the key is used as raw bytes.
func ValidateKey(key []byte, minBytes int) error {
	if len(key) == 0 {
		return ErrKeyMissing
	}
	if minBytes > 0 && len(key) < minBytes {
		return ErrKeyTooShort
	}
	return nil
}
