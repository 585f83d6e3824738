// Package relay bridges one browser WebSocket to one upstream agent
// WebSocket, forwarding frames in both directions unmodified.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	// ErrHandshakeTimeout is returned when the upstream connection is not
	// established within the handshake timeout.
	ErrHandshakeTimeout = errors.New("upstream handshake timed out")
	// ErrUpstreamUnreachable is returned when the upstream dial or the
	// initial config frame fails.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// AudioConfig is the audio format announced to the agent.
type AudioConfig struct {
	AudioEncoding string `json:"audio_encoding"`
	SampleRate    int    `json:"sample_rate"`
	Language      string `json:"language"`
}

// InitialConfig is the first frame sent upstream on every connection.
type InitialConfig struct {
	SessionID string      `json:"session_id"`
	Config    AudioConfig `json:"config"`
}

// Config holds relay settings.
type Config struct {
	HandshakeTimeout time.Duration
	Audio            AudioConfig
}

// Relay opens upstream connections for inbound browser connections.
type Relay struct {
	dialer Dialer
	cfg    Config
	log    zerolog.Logger
}

// New creates a relay.
func New(dialer Dialer, cfg Config, log zerolog.Logger) *Relay {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Relay{
		dialer: dialer,
		cfg:    cfg,
		log:    log.With().Str("component", "relay").Logger(),
	}
}

type dialResult struct {
	conn Conn
	err  error
}

// Open dials the upstream agent and sends the initial config frame. The
// whole handshake is bounded by the configured timeout. On failure the
// inbound connection receives an error frame and is closed with 1011, and
// the returned error wraps ErrHandshakeTimeout or ErrUpstreamUnreachable.
func (r *Relay) Open(ctx context.Context, inbound Conn, sessionID string) (*Pair, error) {
	client := newLockedConn(inbound)

	upstream, err := r.dial(ctx)
	if err != nil {
		r.rejectClient(client, err)
		return nil, err
	}

	frame, err := json.Marshal(InitialConfig{SessionID: sessionID, Config: r.cfg.Audio})
	if err != nil {
		_ = upstream.Close()
		r.rejectClient(client, err)
		return nil, err
	}
	up := newLockedConn(upstream)
	if err := up.write(websocket.TextMessage, frame); err != nil {
		_ = up.close(websocket.CloseNormalClosure, "")
		err = fmt.Errorf("%w: send initial config: %v", ErrUpstreamUnreachable, err)
		r.rejectClient(client, err)
		return nil, err
	}

	r.log.Debug().Str("session_id", sessionID).Msg("upstream connected")
	return newPair(sessionID, client, up), nil
}

func (r *Relay) dial(ctx context.Context) (Conn, error) {
	hctx, cancel := context.WithTimeout(ctx, r.cfg.HandshakeTimeout)
	defer cancel()

	results := make(chan dialResult, 1)
	go func() {
		c, err := r.dialer.Dial(hctx)
		results <- dialResult{conn: c, err: err}
	}()

	select {
	case res := <-results:
		if res.err == nil {
			return res.conn, nil
		}
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrHandshakeTimeout, r.cfg.HandshakeTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, res.err)
	case <-hctx.Done():
		// A dialer that ignores its context may still connect later.
		go func() {
			if res := <-results; res.conn != nil {
				_ = res.conn.Close()
			}
		}()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, ctx.Err())
		}
		return nil, fmt.Errorf("%w after %s", ErrHandshakeTimeout, r.cfg.HandshakeTimeout)
	}
}

type errorFrame struct {
	Type string `json:"type"`
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (r *Relay) rejectClient(client *lockedConn, cause error) {
	r.log.Warn().Err(cause).Msg("upstream handshake failed")

	var frame errorFrame
	frame.Type = "error"
	frame.Data.Message = cause.Error()
	if payload, err := json.Marshal(frame); err == nil {
		_ = client.write(websocket.TextMessage, payload)
	}
	_ = client.close(websocket.CloseInternalServerErr, cause.Error())
}
