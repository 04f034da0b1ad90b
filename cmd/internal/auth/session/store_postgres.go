package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed grant store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateGrant inserts a grant row.
func (s *PostgresStore) CreateGrant(ctx context.Context, g Grant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, g.UserID, g.TokenHash, g.ExpiresAt)
	if isUniqueViolation(err) {
		return ErrGrantExists
	}
	if err != nil {
		return fmt.Errorf("session.CreateGrant: %w", err)
	}
	return nil
}

// RedeemGrant runs the lookup, verification and deletion in one transaction.
//
// The key's rows are locked FOR UPDATE, so a concurrent redemption of the same token
// waits, then finds nothing and takes the revoke branch.
func (s *PostgresStore) RedeemGrant(ctx context.Context, userID, expiresAt int64, match func(hash string) bool) (Redemption, error) {
	var out Redemption

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := grantsForKeyForUpdateTx(ctx, tx, userID, expiresAt)
		if err != nil {
			return err
		}

		if len(rows) == 1 && match(rows[0].TokenHash) {
			n, err := deleteGrantTx(ctx, tx, rows[0].ID)
			if err != nil {
				return err
			}
			if n != 1 {
				return fmt.Errorf("session.RedeemGrant: deleted %d rows, want 1", n)
			}
			out = Redemption{Valid: true}
			return nil
		}

		n, err := revokeAllTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = Redemption{Revoked: n}
		return nil
	})
	if err != nil {
		return Redemption{}, fmt.Errorf("session.RedeemGrant: %w", err)
	}
	return out, nil
}

// RevokeAll deletes every grant of the user.
func (s *PostgresStore) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		n, err = revokeAllTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("session.RevokeAll: %w", err)
	}
	return n, nil
}

// CountGrants returns the number of grant rows for a user.
func (s *PostgresStore) CountGrants(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM refresh_tokens WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("session.CountGrants: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
