package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/session"
)

func newSession(id, user string, state session.State, created time.Time) *session.Session {
	return &session.Session{
		ID:        id,
		Object:    "realtime.session",
		UserID:    user,
		State:     state,
		CreatedAt: created,
		Snapshot:  conversation.NewSnapshot(),
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(zerolog.Nop())

	require.NoError(t, s.Create(ctx, newSession("sess_1", "alice", session.StateOpen, time.Now())))
	require.NoError(t, s.Create(ctx, newSession("sess_2", "alice", session.StateOpen, time.Now())))
	require.NoError(t, s.Create(ctx, newSession("sess_3", "bob", session.StateOpen, time.Now())))
	assert.ErrorIs(t, s.Create(ctx, newSession("sess_1", "bob", session.StateOpen, time.Now())), session.ErrSessionAlreadyExists)

	got, err := s.Get(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)

	alice, err := s.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	require.NoError(t, s.Delete(ctx, "sess_1"))
	_, err = s.Get(ctx, "sess_1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "sess_1"), session.ErrSessionNotFound)

	alice, err = s.GetByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 1)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(zerolog.Nop())
	require.NoError(t, s.Create(ctx, newSession("sess_1", "alice", session.StateOpen, time.Now())))

	got, err := s.Get(ctx, "sess_1")
	require.NoError(t, err)
	got.State = session.StateClosed
	got.Snapshot.Step = conversation.StepMedications

	again, err := s.Get(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, session.StateOpen, again.State)
	assert.Equal(t, conversation.StepInit, again.Snapshot.Step)
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(zerolog.Nop())
	require.NoError(t, s.Create(ctx, newSession("sess_1", "alice", session.StateConnecting, time.Now())))

	require.NoError(t, s.Update(ctx, "sess_1", func(sess *session.Session) error {
		sess.State = session.StateOpen
		return nil
	}))
	got, _ := s.Get(ctx, "sess_1")
	assert.Equal(t, session.StateOpen, got.State)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.Update(ctx, "sess_1", func(*session.Session) error { return boom }), boom)
	assert.ErrorIs(t, s.Update(ctx, "missing", func(*session.Session) error { return nil }), session.ErrSessionNotFound)
}

func TestJanitor_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldClose := now.Add(-time.Hour)
	recentClose := now.Add(-time.Minute)

	closedOld := newSession("sess_closed_old", "u", session.StateClosed, now.Add(-2*time.Hour))
	closedOld.ClosedAt = &oldClose
	closedRecent := newSession("sess_closed_recent", "u", session.StateClosed, now.Add(-2*time.Hour))
	closedRecent.ClosedAt = &recentClose

	for _, sess := range []*session.Session{
		closedOld,
		closedRecent,
		newSession("sess_open_old", "u", session.StateOpen, now.Add(-5*time.Hour)),
		newSession("sess_stuck", "u", session.StateConnecting, now.Add(-time.Hour)),
		newSession("sess_connecting", "u", session.StateConnecting, now.Add(-time.Second)),
	} {
		require.NoError(t, s.Create(ctx, sess))
	}

	j := NewJanitor(s, 30*time.Minute, time.Minute, zerolog.Nop())
	j.now = func() time.Time { return now }

	assert.Equal(t, 2, j.Sweep(ctx))

	remaining, err := s.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(remaining))
	for _, sess := range remaining {
		ids = append(ids, sess.ID)
	}
	assert.ElementsMatch(t, []string{"sess_closed_recent", "sess_open_old", "sess_connecting"}, ids)
}

func TestJanitor_StartStopIdempotent(t *testing.T) {
	j := NewJanitor(NewMemoryStore(zerolog.Nop()), time.Minute, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j.Start(ctx)
	j.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	j.Stop()
	j.Stop()
}
