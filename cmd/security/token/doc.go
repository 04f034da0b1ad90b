// Package token provides the keyed digest applied to refresh tokens before they are
// hashed for storage.
//
// A signed refresh token is longer than the 72 bytes bcrypt accepts, so the stored grant hash is
// bcrypt(RefreshDigest(token, key)). The digest is a stable 64-char hex string.
//
// The key is the process cookie secret (COOKIE_SECRET). Rotating it invalidates every stored grant.
package token
