package session

import (
	"time"

	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/dose"
)

// State represents the lifecycle state of a relay session.
type State string

const (
	// StateConnecting indicates the upstream handshake is in progress.
	StateConnecting State = "connecting"
	// StateOpen indicates frames are being relayed.
	StateOpen State = "open"
	// StateClosing indicates teardown has started.
	StateClosing State = "closing"
	// StateClosed indicates both connections are closed.
	StateClosed State = "closed"
)

var transitions = map[State][]State{
	StateConnecting: {StateOpen, StateClosed},
	StateOpen:       {StateClosing, StateClosed},
	StateClosing:    {StateClosed},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is one browser connection relayed to one upstream conversation.
type Session struct {
	ID             string     `json:"id"`
	Object         string     `json:"object"` // "realtime.session"
	UserID         string     `json:"user_id,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	State          State      `json:"state"`
	CloseReason    string     `json:"close_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`

	FramesFromClient   int64 `json:"frames_from_client"`
	FramesFromUpstream int64 `json:"frames_from_upstream"`
	AudioBytes         int64 `json:"audio_bytes"`
	ToolCalls          int64 `json:"tool_calls"`

	Snapshot conversation.Snapshot `json:"-"`
}

// Clone returns a deep copy safe to hand out of the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.OpenedAt != nil {
		t := *s.OpenedAt
		out.OpenedAt = &t
	}
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		out.ClosedAt = &t
	}
	out.Snapshot = s.Snapshot.Clone()
	return &out
}

// MedicationSchedule is the grouped display schedule of one medication.
type MedicationSchedule struct {
	MedicationID string      `json:"medication_id"`
	Name         string      `json:"name"`
	Strength     string      `json:"strength,omitempty"`
	Form         string      `json:"form,omitempty"`
	Groups       dose.Groups `json:"groups"`
}
