package devstack

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. It is the default backend
// and the one integration tests use.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]SessionRecord // keyed by user id
	byAccess  map[string]string        // access token -> user id
	byRefresh map[string]string        // refresh token -> user id
	profiles  map[string]ProfileRecord // keyed by user id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]SessionRecord),
		byAccess:  make(map[string]string),
		byRefresh: make(map[string]string),
		profiles:  make(map[string]ProfileRecord),
	}
}

func (s *MemoryStore) PutSession(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.UserID.String()
	if old, ok := s.sessions[id]; ok {
		if old.AccessToken != rec.AccessToken {
			delete(s.byAccess, old.AccessToken)
		}
		if old.RefreshToken != rec.RefreshToken {
			delete(s.byRefresh, old.RefreshToken)
		}
	}

	s.sessions[id] = rec
	s.byAccess[rec.AccessToken] = id
	s.byRefresh[rec.RefreshToken] = id
	return nil
}

func (s *MemoryStore) SessionByAccessToken(ctx context.Context, token string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccess[token]
	if !ok {
		return SessionRecord{}, ErrNotFound
	}
	return s.sessions[id], nil
}

func (s *MemoryStore) SessionByRefreshToken(ctx context.Context, token string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRefresh[token]
	if !ok {
		return SessionRecord{}, ErrNotFound
	}
	return s.sessions[id], nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	delete(s.byAccess, rec.AccessToken)
	delete(s.byRefresh, rec.RefreshToken)
	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) PutProfile(ctx context.Context, rec ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[rec.UserID.String()] = rec
	return nil
}

func (s *MemoryStore) ProfileByUser(ctx context.Context, userID string) (ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.profiles[userID]
	if !ok {
		return ProfileRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
