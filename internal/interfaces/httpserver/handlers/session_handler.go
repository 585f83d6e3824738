package handlers

import (
	"context"

	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/session"
)

// SessionHandler handles session-related HTTP requests.
type SessionHandler struct {
	service session.Service
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(service session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// GetSession retrieves a session by ID.
func (h *SessionHandler) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return h.service.Get(ctx, id)
}

// ListUserSessions retrieves all sessions for a user.
func (h *SessionHandler) ListUserSessions(ctx context.Context, userID string) ([]*session.Session, error) {
	return h.service.List(ctx, userID)
}

// EndSession closes a live session.
func (h *SessionHandler) EndSession(ctx context.Context, id string) error {
	return h.service.End(ctx, id)
}

// GetSnapshot returns the data collected so far in a session.
func (h *SessionHandler) GetSnapshot(ctx context.Context, id string) (conversation.Snapshot, error) {
	return h.service.Snapshot(ctx, id)
}

// GetSchedule returns the grouped dosing schedule of a session's medications.
func (h *SessionHandler) GetSchedule(ctx context.Context, id string) ([]session.MedicationSchedule, error) {
	return h.service.Schedule(ctx, id)
}
