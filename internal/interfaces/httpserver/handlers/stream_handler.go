package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/interfaces/httpserver/middlewares"
)

// StreamHandler upgrades browser connections and relays them to the agent.
type StreamHandler struct {
	service   session.Service
	upgrader  websocket.Upgrader
	readLimit int64
	log       zerolog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(cfg *config.Config, service session.Service, log zerolog.Logger) *StreamHandler {
	origins := cfg.WsAllowedOrigins
	return &StreamHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middlewares.OriginAllowed(origins, origin)
			},
		},
		readLimit: cfg.WsMaxMessageBytes,
		log:       log.With().Str("component", "stream-handler").Logger(),
	}
}

// Serve upgrades the request and blocks until the session ends.
func (h *StreamHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.log.Warn().Err(err).Str("origin", c.GetHeader("Origin")).Msg("websocket upgrade failed")
		return
	}
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	userID := UserID(c)
	sess, err := h.service.Open(c.Request.Context(), conn, userID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("session failed to open")
		return
	}
	h.log.Debug().Str("session_id", sess.ID).Str("reason", sess.CloseReason).Msg("session finished")
}

// UserID returns the authenticated user, or "anonymous" when auth is off.
func UserID(c *gin.Context) string {
	if id := c.GetString("user_id"); id != "" {
		return id
	}
	return "anonymous"
}
