package session

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyExists is returned when creating a session whose id is taken.
	ErrSessionAlreadyExists = errors.New("session already exists")
	// ErrSessionNotActive is returned when ending a session that is not relaying.
	ErrSessionNotActive = errors.New("session is not active")
)

// Store defines the interface for session storage.
// Returned sessions are copies; mutate through Update.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*Session, error)

	// GetByUser retrieves all sessions for a user.
	GetByUser(ctx context.Context, userID string) ([]*Session, error)

	// Update applies fn to the stored session under the store's lock.
	Update(ctx context.Context, id string, fn func(*Session) error) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// List returns all sessions (for cleanup iteration).
	List(ctx context.Context) ([]*Session, error)
}

// Recorder persists session lifecycle metadata. Conversation data is never
// passed to it.
type Recorder interface {
	SessionOpened(ctx context.Context, s *Session) error
	SessionClosed(ctx context.Context, s *Session) error
}

// NopRecorder discards lifecycle records.
type NopRecorder struct{}

func (NopRecorder) SessionOpened(context.Context, *Session) error { return nil }
func (NopRecorder) SessionClosed(context.Context, *Session) error { return nil }
