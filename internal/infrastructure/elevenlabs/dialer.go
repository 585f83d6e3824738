package elevenlabs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain/relay"
)

// Dialer opens agent conversations. In direct mode it dials the agent URL
// with the API key header; in signed mode it fetches a signed URL first.
type Dialer struct {
	mode   string
	wsURL  string
	apiKey string
	client *Client
	ws     *websocket.Dialer
	log    zerolog.Logger
}

var _ relay.Dialer = (*Dialer)(nil)

// NewDialer creates an upstream dialer.
func NewDialer(cfg *config.Config, client *Client, log zerolog.Logger) *Dialer {
	ws := *websocket.DefaultDialer
	ws.HandshakeTimeout = cfg.UpstreamHandshakeTimeout
	return &Dialer{
		mode:   cfg.UpstreamMode,
		wsURL:  cfg.AgentWsURL(),
		apiKey: strings.TrimSpace(cfg.ElevenLabsAPIKey),
		client: client,
		ws:     &ws,
		log:    log.With().Str("component", "upstream-dialer").Str("mode", cfg.UpstreamMode).Logger(),
	}
}

// Dial connects to the agent.
func (d *Dialer) Dial(ctx context.Context) (relay.Conn, error) {
	target := d.wsURL
	header := http.Header{}

	if d.mode == config.UpstreamModeSigned {
		signed, err := d.client.SignedURL(ctx)
		if err != nil {
			return nil, err
		}
		target = signed
	} else {
		header.Set("xi-api-key", d.apiKey)
	}

	conn, resp, err := d.ws.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("agent handshake failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, err
	}
	d.log.Debug().Msg("connected to agent")
	return conn, nil
}
