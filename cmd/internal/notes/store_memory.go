package notes

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Note
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]Note)}
}

func (s *MemoryStore) List(ctx context.Context, userID int64, page Page) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	owned := make([]Note, 0)
	for _, n := range s.byID {
		if n.UserID == userID {
			owned = append(owned, n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	if page.Offset >= int64(len(owned)) {
		return []Note{}, nil
	}
	end := page.Offset + page.Limit
	if end > int64(len(owned)) {
		end = int64(len(owned))
	}
	return owned[page.Offset:end], nil
}

func (s *MemoryStore) Get(ctx context.Context, userID, id int64) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return Note{}, NotFoundError{Op: "notes.Get", ID: id}
	}
	return n, nil
}

func (s *MemoryStore) Create(ctx context.Context, userID int64, in Input) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n := Note{ID: s.nextID, Title: in.Title, Body: in.Body, UserID: userID}
	s.byID[n.ID] = n
	return n, nil
}

func (s *MemoryStore) Update(ctx context.Context, userID, id int64, in Input) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return Note{}, NotFoundError{Op: "notes.Update", ID: id}
	}
	n.Title, n.Body = in.Title, in.Body
	s.byID[id] = n
	return n, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return NotFoundError{Op: "notes.Delete", ID: id}
	}
	delete(s.byID, id)
	return nil
}
