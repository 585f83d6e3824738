package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/utils/idgen"
	"voice-intake-api/internal/utils/redact"
)

// Tool call outcomes reported to the Observer.
const (
	ToolOutcomeApplied   = "applied"
	ToolOutcomeUnchanged = "unchanged"
	ToolOutcomeMalformed = "malformed"
	ToolOutcomeUnknown   = "unknown"
)

// Observer receives session measurements.
type Observer interface {
	SessionOpened()
	SessionClosed(side string)
	Handshake(d time.Duration, err error)
	Frame(direction string, kind MessageKind, size int)
	ToolCall(tool, outcome string)
}

// NopObserver discards measurements.
type NopObserver struct{}

func (NopObserver) SessionOpened()                 {}
func (NopObserver) SessionClosed(string)           {}
func (NopObserver) Handshake(time.Duration, error) {}
func (NopObserver) Frame(string, MessageKind, int) {}
func (NopObserver) ToolCall(string, string)        {}

// Service defines the business operations for relay sessions.
type Service interface {
	// Open relays inbound to a new upstream conversation and blocks until
	// the session is closed. It returns the final session.
	Open(ctx context.Context, inbound relay.Conn, userID string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, userID string) ([]*Session, error)
	End(ctx context.Context, id string) error
	Snapshot(ctx context.Context, id string) (conversation.Snapshot, error)
	Schedule(ctx context.Context, id string) ([]MedicationSchedule, error)
}

type service struct {
	opener   Opener
	store    Store
	tools    conversation.ToolTable
	reducer  *conversation.Reducer
	recorder Recorder
	observer Observer
	redactor *redact.Redactor
	log      zerolog.Logger

	mu     sync.RWMutex
	active map[string]*Bridge
}

// Option configures the session service.
type Option func(*service)

// WithRedactor sets how conversation text is masked in logs. The default
// hashes personal data.
func WithRedactor(r *redact.Redactor) Option {
	return func(s *service) {
		if r != nil {
			s.redactor = r
		}
	}
}

// NewService creates a new session service.
func NewService(
	opener Opener,
	store Store,
	tools conversation.ToolTable,
	reducer *conversation.Reducer,
	recorder Recorder,
	observer Observer,
	log zerolog.Logger,
	opts ...Option,
) Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	s := &service{
		opener:   opener,
		store:    store,
		tools:    tools,
		reducer:  reducer,
		recorder: recorder,
		observer: observer,
		redactor: redact.New(redact.LevelHashed, ""),
		log:      log.With().Str("component", "session-service").Logger(),
		active:   make(map[string]*Bridge),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Open(ctx context.Context, inbound relay.Conn, userID string) (*Session, error) {
	sessionID, err := idgen.SessionID()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate session ID")
		_ = inbound.Close()
		return nil, err
	}

	sess := &Session{
		ID:        sessionID,
		Object:    "realtime.session",
		UserID:    userID,
		State:     StateConnecting,
		CreatedAt: time.Now(),
		Snapshot:  conversation.NewSnapshot(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store session")
		_ = inbound.Close()
		return nil, err
	}

	log := s.log.With().Str("session_id", sessionID).Str("user_id", userID).Logger()
	log.Info().Str("state", string(StateConnecting)).Msg("session created")

	// Callbacks outlive request cancellation so the close is always recorded.
	bg := context.WithoutCancel(ctx)
	started := time.Now()

	var bridge *Bridge
	bridge = NewBridge(s.opener, Callbacks{
		OnReady: func() {
			s.observer.Handshake(time.Since(started), nil)
			s.observer.SessionOpened()
			s.markOpen(bg, sessionID, log)
		},
		OnMessage: func(msg Message) {
			s.handleMessage(bg, sessionID, msg, log)
		},
		OnError: func(err error) {
			log.Warn().Err(err).Msg("session error")
		},
		OnState: func(from, to State) {
			s.setState(bg, sessionID, to, log)
		},
		OnFrame: s.observer.Frame,
		OnClosed: func(reason string) {
			s.markClosed(bg, sessionID, reason, bridge, log)
		},
	}, log)

	s.mu.Lock()
	s.active[sessionID] = bridge
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, sessionID)
		s.mu.Unlock()
	}()

	if err := bridge.Run(ctx, inbound, sessionID); err != nil {
		s.observer.Handshake(time.Since(started), err)
		final, _ := s.store.Get(bg, sessionID)
		return final, err
	}
	return s.store.Get(bg, sessionID)
}

func (s *service) markOpen(ctx context.Context, id string, log zerolog.Logger) {
	var opened *Session
	err := s.store.Update(ctx, id, func(sess *Session) error {
		now := time.Now()
		sess.OpenedAt = &now
		next, _ := s.reducer.Reduce(sess.Snapshot, conversation.SessionStarted{})
		sess.Snapshot = next
		opened = sess.Clone()
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to mark session open")
		return
	}
	if err := s.recorder.SessionOpened(ctx, opened); err != nil {
		log.Warn().Err(err).Msg("failed to record session open")
	}
	log.Info().Msg("session open")
}

func (s *service) setState(ctx context.Context, id string, state State, log zerolog.Logger) {
	err := s.store.Update(ctx, id, func(sess *Session) error {
		sess.State = state
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("state", string(state)).Msg("failed to update session state")
	}
}

func (s *service) markClosed(ctx context.Context, id, reason string, bridge *Bridge, log zerolog.Logger) {
	stats := bridge.Stats()
	var closed *Session
	err := s.store.Update(ctx, id, func(sess *Session) error {
		now := time.Now()
		sess.ClosedAt = &now
		sess.CloseReason = reason
		sess.State = StateClosed
		applyStats(sess, stats)
		closed = sess.Clone()
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to mark session closed")
		return
	}

	if closed.OpenedAt != nil {
		side := string(bridge.CloseInfo().Side)
		if side == "" {
			side = string(relay.SideServer)
		}
		s.observer.SessionClosed(side)
	}
	if err := s.recorder.SessionClosed(ctx, closed); err != nil {
		log.Warn().Err(err).Msg("failed to record session close")
	}

	log.Info().
		Str("reason", reason).
		Int64("frames_from_client", stats.FramesFromClient).
		Int64("frames_from_upstream", stats.FramesFromUpstream).
		Int64("audio_bytes", stats.AudioBytes).
		Msg("session closed")
}

func (s *service) handleMessage(ctx context.Context, id string, msg Message, log zerolog.Logger) {
	switch msg.Kind {
	case KindMetadata:
		if msg.ConversationID == "" {
			return
		}
		err := s.store.Update(ctx, id, func(sess *Session) error {
			sess.ConversationID = msg.ConversationID
			return nil
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to record conversation id")
			return
		}
		log.Info().Str("conversation_id", msg.ConversationID).Msg("conversation started")

	case KindToolCall:
		s.applyToolCall(ctx, id, msg.ToolCall, log)

	case KindAgentResponse, KindTranscript:
		log.Debug().Str("kind", string(msg.Kind)).Str("text", s.redactor.Text(msg.Text)).Msg("conversation turn")
	}
}

func (s *service) applyToolCall(ctx context.Context, id string, call *ToolCall, log zerolog.Logger) {
	update := s.tools.Decode(call.Name, call.Parameters)

	outcome := ToolOutcomeApplied
	var reduceErr error
	err := s.store.Update(ctx, id, func(sess *Session) error {
		sess.ToolCalls++
		next, err := s.reducer.Reduce(sess.Snapshot, update)
		reduceErr = err
		if err == nil && snapshotUnchanged(sess.Snapshot, next) {
			outcome = ToolOutcomeUnchanged
		}
		sess.Snapshot = next
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("tool", call.Name).Msg("failed to apply tool call")
		return
	}

	entry := log.Debug()
	if unknown, ok := update.(conversation.Unknown); ok {
		outcome = ToolOutcomeUnknown
		entry = log.Warn().Str("reason", unknown.Reason)
	} else if reduceErr != nil {
		outcome = ToolOutcomeMalformed
		entry = log.Warn().Err(reduceErr)
	}
	entry.Str("tool", call.Name).Str("tool_call_id", call.ID).Str("outcome", outcome).Msg("tool call")

	// Unrecognized names come from the agent and would make the label unbounded.
	label := call.Name
	if outcome == ToolOutcomeUnknown {
		label = "unrecognized"
	}
	s.observer.ToolCall(label, outcome)
}

// snapshotUnchanged relies on Reduce returning its input for no-op updates,
// so the step and section pointers are identical.
func snapshotUnchanged(a, b conversation.Snapshot) bool {
	return a.Step == b.Step &&
		a.UserDetails == b.UserDetails &&
		a.HealthConditions == b.HealthConditions &&
		a.Medications == b.Medications
}

func (s *service) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.overlayLiveStats(sess)
	return sess, nil
}

func (s *service) List(ctx context.Context, userID string) ([]*Session, error) {
	sessions, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		s.overlayLiveStats(sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *service) End(ctx context.Context, id string) error {
	s.mu.RLock()
	bridge, ok := s.active[id]
	s.mu.RUnlock()

	if !ok {
		if _, err := s.store.Get(ctx, id); err != nil {
			return err
		}
		return ErrSessionNotActive
	}
	bridge.End("session ended")
	s.log.Info().Str("session_id", id).Msg("session end requested")
	return nil
}

func (s *service) Snapshot(ctx context.Context, id string) (conversation.Snapshot, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	return sess.Snapshot, nil
}

func (s *service) Schedule(ctx context.Context, id string) ([]MedicationSchedule, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []MedicationSchedule{}
	if snap.Medications == nil {
		return out, nil
	}
	for _, m := range snap.Medications.Medications {
		out = append(out, MedicationSchedule{
			MedicationID: m.ID,
			Name:         m.Name,
			Strength:     m.Strength,
			Form:         m.Form,
			Groups:       m.Schedule(),
		})
	}
	return out, nil
}

func (s *service) overlayLiveStats(sess *Session) {
	s.mu.RLock()
	bridge, ok := s.active[sess.ID]
	s.mu.RUnlock()
	if ok {
		applyStats(sess, bridge.Stats())
	}
}

func applyStats(sess *Session, stats Stats) {
	sess.FramesFromClient = stats.FramesFromClient
	sess.FramesFromUpstream = stats.FramesFromUpstream
	sess.AudioBytes = stats.AudioBytes
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
