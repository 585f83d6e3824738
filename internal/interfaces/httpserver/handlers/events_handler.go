package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/infrastructure/broadcast"
)

// EventSource hands out event listeners.
type EventSource interface {
	Subscribe() (*broadcast.Listener, func())
}

// EventsHandler streams webhook events to browsers as server-sent events.
type EventsHandler struct {
	source    EventSource
	keepalive time.Duration
	log       zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(cfg *config.Config, source *broadcast.Registry, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		source:    source,
		keepalive: cfg.SSEKeepalive,
		log:       log.With().Str("component", "events-handler").Logger(),
	}
}

var connectedEvent = []byte(`{"type":"connected"}`)

// Stream holds the response open, writing each event as a data line and a
// comment line every keepalive period.
func (h *EventsHandler) Stream(c *gin.Context) {
	listener, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if !h.send(c, connectedEvent) {
		return
	}

	keepalive := h.keepalive
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	h.log.Debug().Str("listener_id", listener.ID).Msg("event stream opened")
	defer h.log.Debug().Str("listener_id", listener.ID).Msg("event stream closed")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.write(c, []byte(":\n\n")) {
				return
			}
		case msg, ok := <-listener.C:
			if !ok || !h.send(c, msg) {
				return
			}
		}
	}
}

func (h *EventsHandler) send(c *gin.Context, data []byte) bool {
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return h.write(c, frame)
}

func (h *EventsHandler) write(c *gin.Context, frame []byte) bool {
	if _, err := c.Writer.Write(frame); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}
