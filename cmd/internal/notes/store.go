package notes

import (
	"context"
	"fmt"
)

const (
	DefaultLimit = 25
	MaxLimit     = 50
)

// Note is a single note as returned to its owner.
type Note struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int64  `json:"-"`
}

// Input carries the writable fields of a note.
type Input struct {
	Title string
	Body  string
}

// Page selects a window of a user's notes ordered by id.
type Page struct {
	Offset int64
	Limit  int64
}

// Validate checks the window bounds.
func (p Page) Validate() error {
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxLimit)
	}
	return nil
}

// Store is the notes persistence boundary. All methods are scoped to userID.
type Store interface {
	List(ctx context.Context, userID int64, page Page) ([]Note, error)
	Get(ctx context.Context, userID, id int64) (Note, error)
	Create(ctx context.Context, userID int64, in Input) (Note, error)
	// Update replaces title and body. A missing or foreign note returns NotFoundError.
	Update(ctx context.Context, userID, id int64, in Input) (Note, error)
	Delete(ctx context.Context, userID, id int64) error
}
