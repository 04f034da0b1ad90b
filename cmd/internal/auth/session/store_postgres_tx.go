package session

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func grantsForKeyForUpdateTx(ctx context.Context, tx pgx.Tx, userID, expiresAt int64) ([]Grant, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, token, expires_at
		FROM refresh_tokens
		WHERE user_id = $1 AND expires_at = $2
		FOR UPDATE
	`, userID, expiresAt)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Grant, error) {
		var g Grant
		err := row.Scan(&g.ID, &g.UserID, &g.TokenHash, &g.ExpiresAt)
		return g, err
	})
}

func deleteGrantTx(ctx context.Context, tx pgx.Tx, id int64) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// revokeAllTx locks the user row first. The FK check of a concurrent grant insert takes a
// key-share lock on the same row, so an insert either commits before the delete runs or
// waits until it has committed.
func revokeAllTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
