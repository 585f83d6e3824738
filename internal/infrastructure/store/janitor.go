package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/infrastructure/metrics"
)

// Janitor purges finished sessions from the store:
// - closed sessions once they have been closed for longer than retention
// - sessions stuck in connecting for longer than retention
type Janitor struct {
	store     session.Store
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewJanitor creates a new session janitor.
func NewJanitor(
	store session.Store,
	retention time.Duration,
	interval time.Duration,
	log zerolog.Logger,
) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		log:       log.With().Str("component", "session-janitor").Logger(),
		done:      make(chan struct{}),
	}
}

// Start begins the cleanup loop in background.
// Safe to call multiple times - only the first call starts the janitor.
func (j *Janitor) Start(ctx context.Context) {
	j.startOnce.Do(func() {
		j.wg.Add(1)
		go j.run(ctx)
		j.log.Info().
			Dur("retention", j.retention).
			Dur("interval", j.interval).
			Msg("session janitor started")
	})
}

// Stop gracefully shuts down the janitor.
// Safe to call multiple times - only the first call stops the janitor.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		j.log.Info().Msg("session janitor stopped")
	})
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Debug().Msg("context cancelled, shutting down janitor")
			return
		case <-j.done:
			j.log.Debug().Msg("done signal received, shutting down janitor")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns the number of sessions purged.
func (j *Janitor) Sweep(ctx context.Context) int {
	start := j.now()
	defer func() { metrics.JanitorSweepDuration.Observe(time.Since(start).Seconds()) }()

	sessions, err := j.store.List(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("failed to list sessions for cleanup")
		return 0
	}

	purged := 0
	for _, sess := range sessions {
		reason, expired := j.expired(sess, start)
		if !expired {
			continue
		}
		if err := j.store.Delete(ctx, sess.ID); err != nil {
			continue
		}
		purged++
		j.log.Info().
			Str("action", "deleted").
			Str("session_id", sess.ID).
			Str("reason", reason).
			Msg("session cleanup")
	}

	if purged > 0 {
		metrics.RecordSessionsPurged(purged)
	}
	return purged
}

func (j *Janitor) expired(sess *session.Session, now time.Time) (string, bool) {
	switch sess.State {
	case session.StateClosed:
		closedAt := sess.CreatedAt
		if sess.ClosedAt != nil {
			closedAt = *sess.ClosedAt
		}
		return "retention_elapsed", now.Sub(closedAt) > j.retention
	case session.StateConnecting:
		return "stale", now.Sub(sess.CreatedAt) > j.retention
	}
	return "", false
}
