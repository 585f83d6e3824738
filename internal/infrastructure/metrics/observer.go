package metrics

import (
	"time"

	"voice-intake-api/internal/domain/session"
)

// SessionObserver reports session measurements to Prometheus.
type SessionObserver struct{}

// NewSessionObserver creates a session observer.
func NewSessionObserver() SessionObserver {
	return SessionObserver{}
}

func (SessionObserver) SessionOpened() { RecordSessionOpened() }

func (SessionObserver) SessionClosed(side string) { RecordSessionClosed(side) }

func (SessionObserver) Handshake(d time.Duration, err error) { RecordHandshake(d, err) }

func (SessionObserver) Frame(direction string, kind session.MessageKind, size int) {
	FramesRelayed.WithLabelValues(direction, string(kind)).Inc()
	if kind == session.KindAudio {
		AudioBytes.WithLabelValues(direction).Add(float64(size))
	}
}

func (SessionObserver) ToolCall(tool, outcome string) {
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

var _ session.Observer = SessionObserver{}
