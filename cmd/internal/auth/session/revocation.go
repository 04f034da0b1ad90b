package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records a per-user cutoff: access tokens issued before it are rejected.
//
// Refresh grants in the Store stay authoritative; the cutoff only shortens the window in
// which an already issued access token remains usable after a theft was detected.
type Revocations interface {
	Revoke(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error
	Cutoff(ctx context.Context, userID int64) (time.Time, bool, error)
}

// NopRevocations never rejects anything.
type NopRevocations struct{}

func (NopRevocations) Revoke(context.Context, int64, time.Time, time.Duration) error { return nil }

func (NopRevocations) Cutoff(context.Context, int64) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// RedisRevocations keeps cutoffs in Redis as unix seconds under notes:revoked:<id>.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevocations wraps an existing client; the caller owns and closes it.
func NewRedisRevocations(client redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: "notes:revoked:"}
}

func (r *RedisRevocations) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Revoke stores the cutoff for ttl, which should cover the longest access-token lifetime.
func (r *RedisRevocations) Revoke(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(userID), at.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revocations.Revoke: %w", err)
	}
	return nil
}

func (r *RedisRevocations) Cutoff(ctx context.Context, userID int64) (time.Time, bool, error) {
	v, err := r.client.Get(ctx, r.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("revocations.Cutoff: %w", err)
	}
	return time.Unix(v, 0), true, nil
}
