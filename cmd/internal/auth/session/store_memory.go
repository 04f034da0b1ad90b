package session

import (
	"context"
	"sync"
)

type grantKey struct {
	userID    int64
	expiresAt int64
}

// MemoryStore is an in-memory Store for dev mode and tests.
//
// One mutex covers every operation, which gives RedeemGrant the same single-winner
// behavior as the row lock in PostgresStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	grants map[grantKey]Grant
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grants: make(map[grantKey]Grant)}
}

func (s *MemoryStore) CreateGrant(ctx context.Context, g Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := grantKey{userID: g.UserID, expiresAt: g.ExpiresAt}
	if _, exists := s.grants[k]; exists {
		return ErrGrantExists
	}
	s.nextID++
	g.ID = s.nextID
	s.grants[k] = g
	return nil
}

func (s *MemoryStore) RedeemGrant(ctx context.Context, userID, expiresAt int64, match func(hash string) bool) (Redemption, error) {
	if err := ctx.Err(); err != nil {
		return Redemption{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := grantKey{userID: userID, expiresAt: expiresAt}
	if g, ok := s.grants[k]; ok && match(g.TokenHash) {
		delete(s.grants, k)
		return Redemption{Valid: true}, nil
	}
	return Redemption{Revoked: s.revokeAllLocked(userID)}, nil
}

func (s *MemoryStore) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeAllLocked(userID), nil
}

func (s *MemoryStore) CountGrants(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k := range s.grants {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) revokeAllLocked(userID int64) int64 {
	var n int64
	for k := range s.grants {
		if k.userID == userID {
			delete(s.grants, k)
			n++
		}
	}
	return n
}
