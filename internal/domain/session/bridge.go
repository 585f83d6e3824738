package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/relay"
)

// ErrBridgeStarted is returned when Run is called twice on one bridge.
var ErrBridgeStarted = errors.New("bridge already started")

// Direction labels a relayed frame.
const (
	DirectionClientToUpstream = "client_to_upstream"
	DirectionUpstreamToClient = "upstream_to_client"
)

// UpstreamError is an error frame sent by the agent.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "upstream agent error: " + e.Message
}

// AbnormalCloseError reports a connection that closed with a code other
// than normal closure or going away.
type AbnormalCloseError struct {
	Side   relay.Side
	Code   int
	Reason string
}

func (e *AbnormalCloseError) Error() string {
	return fmt.Sprintf("%s closed abnormally (%d): %s", e.Side, e.Code, e.Reason)
}

// Opener opens a relay pair for an inbound connection.
type Opener interface {
	Open(ctx context.Context, inbound relay.Conn, sessionID string) (*relay.Pair, error)
}

// Callbacks receive bridge lifecycle events. All are optional and are called
// from the bridge's goroutines, never concurrently with each other for the
// same direction.
type Callbacks struct {
	OnReady   func()
	OnMessage func(Message)
	OnAudio   func([]byte)
	OnClosed  func(reason string)
	OnError   func(error)

	// OnState observes every lifecycle transition.
	OnState func(from, to State)
	// OnFrame observes every relayed frame.
	OnFrame func(direction string, kind MessageKind, size int)
}

// Stats are the bridge's running frame counters.
type Stats struct {
	FramesFromClient   int64
	FramesFromUpstream int64
	AudioBytes         int64
}

// Bridge drives one session: it opens the relay, answers heartbeats,
// classifies upstream frames and reports lifecycle events.
type Bridge struct {
	opener Opener
	cb     Callbacks
	log    zerolog.Logger

	started atomic.Bool
	done    chan struct{}

	mu        sync.Mutex
	state     State
	pair      *relay.Pair
	endReason string
	closeInfo relay.CloseInfo

	framesFromClient   atomic.Int64
	framesFromUpstream atomic.Int64
	audioBytes         atomic.Int64
}

// NewBridge creates a bridge in the connecting state.
func NewBridge(opener Opener, cb Callbacks, log zerolog.Logger) *Bridge {
	return &Bridge{
		opener: opener,
		cb:     cb,
		log:    log,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
}

// Run opens the relay and pumps frames until either side closes, ctx is
// cancelled, or End is called. It returns the handshake error, if any.
func (b *Bridge) Run(ctx context.Context, inbound relay.Conn, sessionID string) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrBridgeStarted
	}
	defer close(b.done)

	pair, err := b.opener.Open(ctx, inbound, sessionID)
	if err != nil {
		b.transition(StateClosed)
		b.emitError(err)
		b.emitClosed(err.Error())
		return err
	}

	b.mu.Lock()
	b.pair = pair
	pendingEnd := b.endReason
	b.mu.Unlock()

	b.transition(StateOpen)
	if b.cb.OnReady != nil {
		b.cb.OnReady()
	}
	if pendingEnd != "" {
		pair.Close(websocket.CloseNormalClosure, pendingEnd)
	}

	stop := context.AfterFunc(ctx, func() {
		pair.Close(websocket.CloseGoingAway, "server shutting down")
	})
	defer stop()

	info := pair.Pump(relay.Hooks{
		Upstream: func(mt int, data []byte) bool { return b.onUpstream(pair, mt, data) },
		Client:   b.onClient,
	})

	b.transition(StateClosing)
	b.mu.Lock()
	b.closeInfo = info
	b.mu.Unlock()

	if info.Side != relay.SideServer && info.Abnormal() {
		b.emitError(&AbnormalCloseError{Side: info.Side, Code: info.Code, Reason: info.Reason})
	}
	b.transition(StateClosed)
	b.emitClosed(closeReason(info))
	return nil
}

// End closes the session from the server side. Calling End before the
// relay is open closes it as soon as it opens.
func (b *Bridge) End(reason string) {
	if reason == "" {
		reason = "session ended"
	}
	b.mu.Lock()
	pair := b.pair
	if pair == nil && b.endReason == "" {
		b.endReason = reason
	}
	b.mu.Unlock()

	if pair != nil {
		pair.Close(websocket.CloseNormalClosure, reason)
	}
}

// Done is closed when Run returns.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CloseInfo returns how the relay ended. Zero until the bridge is closing.
func (b *Bridge) CloseInfo() relay.CloseInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeInfo
}

// Stats returns the running counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		FramesFromClient:   b.framesFromClient.Load(),
		FramesFromUpstream: b.framesFromUpstream.Load(),
		AudioBytes:         b.audioBytes.Load(),
	}
}

func (b *Bridge) transition(to State) {
	b.mu.Lock()
	from := b.state
	if !CanTransition(from, to) {
		b.mu.Unlock()
		return
	}
	b.state = to
	b.mu.Unlock()

	if b.cb.OnState != nil {
		b.cb.OnState(from, to)
	}
}

func (b *Bridge) onClient(mt int, data []byte) {
	b.framesFromClient.Add(1)
	kind := KindOther
	if mt == websocket.BinaryMessage {
		kind = KindAudio
	}
	b.observeFrame(DirectionClientToUpstream, kind, len(data))
}

// onUpstream handles one upstream frame. It returns false for frames that
// must not reach the browser.
func (b *Bridge) onUpstream(pair *relay.Pair, mt int, data []byte) bool {
	b.framesFromUpstream.Add(1)

	if mt == websocket.BinaryMessage {
		b.audioBytes.Add(int64(len(data)))
		b.observeFrame(DirectionUpstreamToClient, KindAudio, len(data))
		if b.cb.OnAudio != nil {
			b.cb.OnAudio(data)
		}
		return true
	}

	msg := Classify(data)
	b.observeFrame(DirectionUpstreamToClient, msg.Kind, len(data))

	switch msg.Kind {
	case KindHeartbeat:
		if err := pair.WriteUpstream(websocket.TextMessage, pongFor(msg)); err != nil {
			b.log.Debug().Err(err).Msg("failed to answer heartbeat")
		}
		return false

	case KindAudio:
		b.audioBytes.Add(int64(len(msg.audio)))
		if b.cb.OnAudio != nil {
			b.cb.OnAudio(msg.audio)
		}

	case KindError:
		// Forward the error before tearing down so the browser can show it.
		_ = pair.WriteClient(mt, data)
		b.emitError(&UpstreamError{Message: msg.Text})
		pair.Close(websocket.CloseInternalServerErr, msg.Text)
		return false

	default:
		if b.cb.OnMessage != nil {
			b.cb.OnMessage(msg)
		}
	}
	return true
}

func (b *Bridge) observeFrame(direction string, kind MessageKind, size int) {
	if b.cb.OnFrame != nil {
		b.cb.OnFrame(direction, kind, size)
	}
}

func (b *Bridge) emitError(err error) {
	if b.cb.OnError != nil {
		b.cb.OnError(err)
	}
}

func (b *Bridge) emitClosed(reason string) {
	if b.cb.OnClosed != nil {
		b.cb.OnClosed(reason)
	}
}

func closeReason(info relay.CloseInfo) string {
	if info.Reason != "" {
		return info.Reason
	}
	switch info.Side {
	case relay.SideClient:
		return "client disconnected"
	case relay.SideUpstream:
		return "upstream disconnected"
	default:
		return "session ended"
	}
}
