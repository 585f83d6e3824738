package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/interfaces/httpserver/handlers"
	"voice-intake-api/internal/interfaces/httpserver/responses"
	sessionres "voice-intake-api/internal/interfaces/httpserver/responses/session"
	"voice-intake-api/internal/utils/platformerrors"
)

// RegisterRealtimeRoutes registers the realtime session routes.
func RegisterRealtimeRoutes(router gin.IRoutes, handler *handlers.SessionHandler, token *handlers.TokenHandler, agent *handlers.AgentHandler) {
	router.GET("/realtime/signed-url", signedURL(token))
	router.GET("/realtime/agent", getAgent(agent))
	router.GET("/realtime/connection-test", testConnection(agent))

	router.GET("/realtime/sessions", listSessions(handler))
	router.GET("/realtime/sessions/:id", getSession(handler))
	router.DELETE("/realtime/sessions/:id", endSession(handler))
	router.GET("/realtime/sessions/:id/snapshot", getSnapshot(handler))
	router.GET("/realtime/sessions/:id/medications/schedule", getSchedule(handler))
}

// signedURL godoc
// @Summary      Get a conversation URL
// @Description  Returns a signed agent URL in signed mode, or the relay WebSocket URL in direct mode.
// @Tags         Realtime API
// @Produce      json
// @Success      200 {object} responses.SignedURLResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      502 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/signed-url [get]
func signedURL(token *handlers.TokenHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
		resp, err := token.Issue(c.Request.Context(), handlers.RelayURL(c.Request.Host, secure))
		if err != nil {
			responses.HandleError(c, err, "failed to issue conversation url")
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// getAgent godoc
// @Summary      Get the agent configuration
// @Description  Returns the configured agent's full configuration as reported by the agent platform.
// @Tags         Realtime API
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} responses.ErrorResponse
// @Failure      502 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/agent [get]
func getAgent(agent *handlers.AgentHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := agent.Config(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to fetch agent configuration")
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
	}
}

// testConnection godoc
// @Summary      Test the agent platform connection
// @Description  Checks that the API key is accepted and that the configured agent exists. Failed checks answer 502 with the failing endpoint and upstream status.
// @Tags         Realtime API
// @Produce      json
// @Success      200 {object} responses.ConnectionTestResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      502 {object} responses.ConnectionTestResponse
// @Security     BearerAuth
// @Router       /v1/realtime/connection-test [get]
func testConnection(agent *handlers.AgentHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := agent.TestConnection(c.Request.Context())
		status := http.StatusOK
		if !resp.Success {
			status = http.StatusBadGateway
		}
		c.JSON(status, resp)
	}
}

// listSessions godoc
// @Summary      List relay sessions
// @Description  Lists the current user's sessions, newest first. Closed sessions stay listed until they are purged.
// @Tags         Realtime API
// @Produce      json
// @Success      200 {object} sessionres.ListSessionsResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/sessions [get]
func listSessions(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := handler.ListUserSessions(c.Request.Context(), handlers.UserID(c))
		if err != nil {
			responses.HandleError(c, err, "failed to list sessions")
			return
		}
		c.JSON(http.StatusOK, sessionres.NewListSessionsResponse(sessions))
	}
}

// getSession godoc
// @Summary      Get a relay session
// @Description  Retrieves a session with its live frame counters. Users can only access their own sessions.
// @Tags         Realtime API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.SessionResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/sessions/{id} [get]
func getSession(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := ownedSession(c, handler)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, sessionres.NewSessionResponse(sess))
	}
}

// endSession godoc
// @Summary      End a relay session
// @Description  Closes both connections of a live session.
// @Tags         Realtime API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.EndSessionResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/sessions/{id} [delete]
func endSession(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := ownedSession(c, handler)
		if !ok {
			return
		}
		if err := handler.EndSession(c.Request.Context(), sess.ID); err != nil {
			responses.HandleError(c, err, "session is not active")
			return
		}
		c.JSON(http.StatusOK, sessionres.NewEndSessionResponse(sess.ID))
	}
}

// getSnapshot godoc
// @Summary      Get collected intake data
// @Description  Returns the account, health condition and medication data collected so far.
// @Tags         Realtime API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.SnapshotResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/sessions/{id}/snapshot [get]
func getSnapshot(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := ownedSession(c, handler)
		if !ok {
			return
		}
		snap, err := handler.GetSnapshot(c.Request.Context(), sess.ID)
		if err != nil {
			responses.HandleError(c, err, "session not found")
			return
		}
		c.JSON(http.StatusOK, sessionres.NewSnapshotResponse(sess.ID, snap))
	}
}

// getSchedule godoc
// @Summary      Get medication schedules
// @Description  Groups each medication's doses into display rows by day set, with an As-needed row last.
// @Tags         Realtime API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} sessionres.ScheduleResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime/sessions/{id}/medications/schedule [get]
func getSchedule(handler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := ownedSession(c, handler)
		if !ok {
			return
		}
		schedules, err := handler.GetSchedule(c.Request.Context(), sess.ID)
		if err != nil {
			responses.HandleError(c, err, "session not found")
			return
		}
		c.JSON(http.StatusOK, sessionres.NewScheduleResponse(sess.ID, schedules))
	}
}

// ownedSession loads the :id session and checks it belongs to the caller.
// It writes the error response and returns false otherwise.
func ownedSession(c *gin.Context, handler *handlers.SessionHandler) (*session.Session, bool) {
	sess, err := handler.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "session not found")
		return nil, false
	}
	if sess.UserID != handlers.UserID(c) {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "access denied")
		return nil, false
	}
	return sess, true
}
