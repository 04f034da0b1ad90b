package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"notes/cmd/identity/ids"

	"github.com/golang-jwt/jwt/v5"
)

// Kind separates access tokens from refresh tokens signed with the same secret.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT payload of both token kinds.
type Claims struct {
	UserID int64 `json:"id"`
	Kind   Kind  `json:"kind"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim, or the zero time when absent.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the iat claim, or the zero time when absent.
func (c Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// Codec signs and verifies HS256 tokens.
type Codec struct {
	secret []byte
	parser *jwt.Parser
}

// NewCodec returns a Codec bound to secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrConfig
	}
	return &Codec{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(),
	}, nil
}

// Sign issues a token of the given kind. exp is truncated to whole seconds by the JWT encoding.
func (c *Codec) Sign(userID int64, kind Kind, now, exp time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ids.Make(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// DecodeUnverified reads claims WITHOUT checking the signature.
//
// The result is only a lookup key; callers must authenticate the raw token some other way.
func (c *Codec) DecodeUnverified(raw string) (Claims, error) {
	var claims Claims
	if _, _, err := c.parser.ParseUnverified(raw, &claims); err != nil {
		return Claims{}, ErrMalformedToken
	}
	if claims.UserID <= 0 || claims.ExpiresAt == nil {
		return Claims{}, ErrMalformedToken
	}
	return claims, nil
}

// Verify checks signature, expiry at now, and kind.
func (c *Codec) Verify(raw string, kind Kind, now time.Time) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind || claims.UserID <= 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifySignature reports whether raw was signed with our secret, ignoring every claim.
func (c *Codec) VerifySignature(raw string) bool {
	_, err := jwt.ParseWithClaims(raw, &Claims{}, c.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return err == nil
}

func (c *Codec) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.secret, nil
}
