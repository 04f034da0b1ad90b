package notes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("note not found")
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError reports a note that does not exist for the requesting user.
type NotFoundError struct {
	Op string
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s: note %d: %v", e.Op, e.ID, ErrNotFound)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }
