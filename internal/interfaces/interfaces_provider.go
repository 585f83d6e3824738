package interfaces

import (
	"github.com/google/wire"

	"voice-intake-api/internal/interfaces/httpserver"
	"voice-intake-api/internal/interfaces/httpserver/handlers"
	"voice-intake-api/internal/interfaces/httpserver/routes"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	httpserver.New,
)
