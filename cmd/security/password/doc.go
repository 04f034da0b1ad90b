// Package password provides password hashing and verification for the notes API.
//
// It wraps bcrypt with:
// - A configurable cost factor (SALT_ROUNDS, default 10)
// - Password policy validation (length in runes plus bcrypt's 72-byte input limit)
// - Verification that treats stored hashes as untrusted input
//
// HashSecret hashes server-derived secrets (refresh-token digests) without applying the
// user password policy.
package password
