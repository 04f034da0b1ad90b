package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxInputBytes is the largest input bcrypt accepts.
const maxInputBytes = 72

// Hash validates password against the policy and returns its bcrypt hash.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.hash([]byte(password))
}

// HashSecret hashes a server-derived secret (no user policy applied).
func (c Config) HashSecret(secret string) (string, error) {
	if secret == "" || len(secret) > maxInputBytes {
		return "", ErrInvalidSecret
	}
	return c.hash([]byte(secret))
}

func (c Config) hash(b []byte) (string, error) {
	h, err := bcrypt.GenerateFromPassword(b, c.cost())
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, ErrInvalidHash
	}

	// Refuse stored hashes far above the configured work factor.
	if cost > c.cost()+4 {
		return false, ErrInvalidHash
	}

	err = bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

func (c Config) cost() int {
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return c.Cost
}
