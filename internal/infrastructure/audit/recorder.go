package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voice-intake-api/internal/domain/session"
)

// SessionRecord is one row of the session audit log. It holds lifecycle
// metadata only; collected intake data is never written.
type SessionRecord struct {
	SessionID          string `gorm:"primaryKey;size:64"`
	UserID             string `gorm:"size:255;index"`
	ConversationID     string `gorm:"size:255"`
	State              string `gorm:"size:32"`
	StepReached        string `gorm:"size:32"`
	CloseReason        string `gorm:"size:255"`
	FramesFromClient   int64
	FramesFromUpstream int64
	AudioBytes         int64
	ToolCalls          int64
	CreatedAt          time.Time
	OpenedAt           *time.Time
	ClosedAt           *time.Time
	UpdatedAt          time.Time
}

// TableName pins the audit table name.
func (SessionRecord) TableName() string {
	return "voice_session_audit"
}

func recordFrom(s *session.Session) SessionRecord {
	return SessionRecord{
		SessionID:          s.ID,
		UserID:             s.UserID,
		ConversationID:     s.ConversationID,
		State:              string(s.State),
		StepReached:        string(s.Snapshot.Step),
		CloseReason:        s.CloseReason,
		FramesFromClient:   s.FramesFromClient,
		FramesFromUpstream: s.FramesFromUpstream,
		AudioBytes:         s.AudioBytes,
		ToolCalls:          s.ToolCalls,
		CreatedAt:          s.CreatedAt,
		OpenedAt:           s.OpenedAt,
		ClosedAt:           s.ClosedAt,
	}
}

// Recorder writes session lifecycle rows with GORM.
type Recorder struct {
	db  *gorm.DB
	log zerolog.Logger
}

var _ session.Recorder = (*Recorder)(nil)

// NewRecorder creates a recorder and migrates its table.
func NewRecorder(db *gorm.DB, log zerolog.Logger) (*Recorder, error) {
	if err := db.AutoMigrate(&SessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return &Recorder{db: db, log: log.With().Str("component", "session-audit").Logger()}, nil
}

// SessionOpened inserts the session row.
func (r *Recorder) SessionOpened(ctx context.Context, s *session.Session) error {
	return r.upsert(ctx, s)
}

// SessionClosed writes the final state and counters.
func (r *Recorder) SessionClosed(ctx context.Context, s *session.Session) error {
	return r.upsert(ctx, s)
}

func (r *Recorder) upsert(ctx context.Context, s *session.Session) error {
	rec := recordFrom(s)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("record session %s: %w", s.ID, err)
	}
	r.log.Debug().Str("session_id", s.ID).Str("state", rec.State).Msg("session audited")
	return nil
}
