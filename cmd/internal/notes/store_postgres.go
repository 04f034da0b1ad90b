package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the notes table. The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("notes: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context, userID int64, page Page) ([]Note, error) {
	const op = "notes.List"

	if err := page.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, body, user_id
		FROM notes
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Note, error) {
		return scanNote(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, id int64) (Note, error) {
	const op = "notes.Get"

	n, err := scanNote(s.pool.QueryRow(ctx, `
		SELECT id, title, body, user_id
		FROM notes
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	return n, classify(op, id, err)
}

func (s *PostgresStore) Create(ctx context.Context, userID int64, in Input) (Note, error) {
	const op = "notes.Create"

	n, err := scanNote(s.pool.QueryRow(ctx, `
		INSERT INTO notes (title, body, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, body, user_id
	`, in.Title, in.Body, userID))
	if err != nil {
		return Note{}, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID, id int64, in Input) (Note, error) {
	const op = "notes.Update"

	n, err := scanNote(s.pool.QueryRow(ctx, `
		UPDATE notes
		SET title = $1, body = $2
		WHERE id = $3 AND user_id = $4
		RETURNING id, title, body, user_id
	`, in.Title, in.Body, id, userID))
	return n, classify(op, id, err)
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id int64) error {
	const op = "notes.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() != 1 {
		return NotFoundError{Op: op, ID: id}
	}
	return nil
}

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	if err := row.Scan(&n.ID, &n.Title, &n.Body, &n.UserID); err != nil {
		return Note{}, err
	}
	return n, nil
}

func classify(op string, id int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return NotFoundError{Op: op, ID: id}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
