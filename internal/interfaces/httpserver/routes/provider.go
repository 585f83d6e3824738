package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"voice-intake-api/internal/infrastructure/auth"
	"voice-intake-api/internal/interfaces/httpserver/handlers"
	v1 "voice-intake-api/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	handlers      *handlers.Provider
	authValidator *auth.Validator
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authValidator *auth.Validator) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider),
		handlers:      handlerProvider,
		authValidator: authValidator,
	}
}

// Register registers all routes on the engine. The relay socket and the
// v1 API sit behind auth; the event stream is public and webhooks are
// authenticated by their signature.
func (p *Provider) Register(engine *gin.Engine) {
	var authMiddleware gin.HandlerFunc
	if p.authValidator != nil {
		authMiddleware = p.authValidator.Middleware()
	}

	if authMiddleware != nil {
		engine.GET("/ws", authMiddleware, p.handlers.Stream.Serve)
	} else {
		engine.GET("/ws", p.handlers.Stream.Serve)
	}
	engine.GET("/events", p.handlers.Events.Stream)
	engine.POST("/webhooks/elevenlabs", p.handlers.Webhook.Receive)

	p.V1.Register(engine, authMiddleware)
}

// RouteProvider provides routes for wire.
var RouteProvider = wire.NewSet(
	NewProvider,
)
