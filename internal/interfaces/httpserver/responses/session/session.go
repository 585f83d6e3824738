// Package sessionres contains HTTP response DTOs for session endpoints.
package sessionres

import (
	"time"

	"voice-intake-api/internal/domain/conversation"
	domainsession "voice-intake-api/internal/domain/session"
)

// SessionResponse represents a relay session in API responses.
type SessionResponse struct {
	ID                 string     `json:"id"`
	Object             string     `json:"object"`
	UserID             string     `json:"user_id,omitempty"`
	ConversationID     string     `json:"conversation_id,omitempty"`
	Status             string     `json:"status"`
	CloseReason        string     `json:"close_reason,omitempty"`
	Step               string     `json:"step"`
	CreatedAt          int64      `json:"created_at"`
	OpenedAt           *time.Time `json:"opened_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	FramesFromClient   int64      `json:"frames_from_client"`
	FramesFromUpstream int64      `json:"frames_from_upstream"`
	AudioBytes         int64      `json:"audio_bytes"`
	ToolCalls          int64      `json:"tool_calls"`
}

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Object string             `json:"object"`
	Data   []*SessionResponse `json:"data"`
}

// EndSessionResponse represents the response for ending a session.
type EndSessionResponse struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Ended  bool   `json:"ended"`
}

// SnapshotResponse wraps the collected intake data of a session.
type SnapshotResponse struct {
	SessionID string                `json:"session_id"`
	Object    string                `json:"object"`
	Snapshot  conversation.Snapshot `json:"snapshot"`
}

// ScheduleResponse lists the grouped dosing schedule per medication.
type ScheduleResponse struct {
	SessionID string                             `json:"session_id"`
	Object    string                             `json:"object"`
	Data      []domainsession.MedicationSchedule `json:"data"`
}

// NewSessionResponse creates a SessionResponse from a domain Session.
func NewSessionResponse(sess *domainsession.Session) *SessionResponse {
	return &SessionResponse{
		ID:                 sess.ID,
		Object:             sess.Object,
		UserID:             sess.UserID,
		ConversationID:     sess.ConversationID,
		Status:             string(sess.State),
		CloseReason:        sess.CloseReason,
		Step:               string(sess.Snapshot.Step),
		CreatedAt:          sess.CreatedAt.Unix(),
		OpenedAt:           sess.OpenedAt,
		ClosedAt:           sess.ClosedAt,
		FramesFromClient:   sess.FramesFromClient,
		FramesFromUpstream: sess.FramesFromUpstream,
		AudioBytes:         sess.AudioBytes,
		ToolCalls:          sess.ToolCalls,
	}
}

// NewListSessionsResponse creates a ListSessionsResponse from domain Sessions.
func NewListSessionsResponse(sessions []*domainsession.Session) *ListSessionsResponse {
	data := make([]*SessionResponse, len(sessions))
	for i, s := range sessions {
		data[i] = NewSessionResponse(s)
	}
	return &ListSessionsResponse{Object: "list", Data: data}
}

// NewEndSessionResponse creates an EndSessionResponse.
func NewEndSessionResponse(id string) *EndSessionResponse {
	return &EndSessionResponse{ID: id, Object: "realtime.session.ended", Ended: true}
}

// NewSnapshotResponse creates a SnapshotResponse.
func NewSnapshotResponse(id string, snap conversation.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{SessionID: id, Object: "realtime.session.snapshot", Snapshot: snap}
}

// NewScheduleResponse creates a ScheduleResponse.
func NewScheduleResponse(id string, schedules []domainsession.MedicationSchedule) *ScheduleResponse {
	return &ScheduleResponse{SessionID: id, Object: "list", Data: schedules}
}
