package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/session"
)

// MemoryStore is a mutex-based in-memory session store.
// Sessions are stored by pointer and copied on every read.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	userIndex map[string]map[string]struct{} // user -> session IDs
	log       zerolog.Logger
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*session.Session),
		userIndex: make(map[string]map[string]struct{}),
		log:       log.With().Str("component", "session-store").Logger(),
	}
}

// Create stores a copy of sess.
func (s *MemoryStore) Create(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return session.ErrSessionAlreadyExists
	}

	s.sessions[sess.ID] = sess.Clone()
	ids, ok := s.userIndex[sess.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.userIndex[sess.UserID] = ids
	}
	ids[sess.ID] = struct{}{}
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// GetByUser retrieves all sessions for a user.
func (s *MemoryStore) GetByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userIndex[userID]
	result := make([]*session.Session, 0, len(ids))
	for id := range ids {
		if sess, ok := s.sessions[id]; ok {
			result = append(result, sess.Clone())
		}
	}
	return result, nil
}

// Update applies fn to the stored session while holding the write lock.
// Changes made by fn are kept even when fn returns an error.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*session.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	return fn(sess)
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}

	if ids, ok := s.userIndex[sess.UserID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.userIndex, sess.UserID)
		}
	}
	delete(s.sessions, id)
	return nil
}

// List returns all sessions.
func (s *MemoryStore) List(ctx context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.Clone())
	}
	return result, nil
}
