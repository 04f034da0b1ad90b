// Package session implements the notes API session lifecycle.
//
// A login issues a short-lived JWT access token and a long-lived JWT refresh token.
// Each refresh token is backed by one grant row (user id, expiry, bcrypt hash) and is
// single-use: redeeming it consumes the grant and issues a fresh pair. Presenting a token
// that does not match exactly one grant is treated as theft and wipes every grant of the user.
//
// Transport (HTTP cookies, JSON bodies) lives in the api package.
package session
