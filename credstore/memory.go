package credstore

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Key]string
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Key]string, len(Keys))}
}

func (s *MemoryStore) Save(ctx context.Context, accessToken, refreshToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[KeyAccessToken] = accessToken
	if refreshToken == "" {
		delete(s.values, KeyRefreshToken)
		return nil
	}
	s.values[KeyRefreshToken] = refreshToken
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (string, bool, error) {
	if !validKey(key) {
		return "", false, ErrUnknownKey
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Remove(ctx context.Context, key Key) error {
	if !validKey(key) {
		return ErrUnknownKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
	return nil
}
