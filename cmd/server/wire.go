//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain"
	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/infrastructure/auth"
	"voice-intake-api/internal/infrastructure/broadcast"
	"voice-intake-api/internal/infrastructure/elevenlabs"
	"voice-intake-api/internal/infrastructure/metrics"
	"voice-intake-api/internal/infrastructure/store"
	"voice-intake-api/internal/interfaces"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	elevenlabs.NewClient,
	elevenlabs.NewDialer,
	wire.Bind(new(relay.Dialer), new(*elevenlabs.Dialer)),
	ProvideSessionStore,
	ProvideJanitor,
	ProvideObserver,
	ProvideRegistry,
	ProvideAuthValidator,
	provideRecorder,
	provideFanout,
	providePublisher,

	// Domain providers
	domain.ServiceProvider,

	// Interface providers
	interfaces.InterfacesProvider,

	// Application
	NewApplication,
)

// ProvideSessionStore provides the in-memory session store.
func ProvideSessionStore(log zerolog.Logger) *store.MemoryStore {
	return store.NewMemoryStore(log)
}

// ProvideJanitor provides the session janitor.
func ProvideJanitor(s *store.MemoryStore, cfg *config.Config, log zerolog.Logger) *store.Janitor {
	return store.NewJanitor(s, cfg.SessionRetention, cfg.SessionCleanupInterval, log)
}

// ProvideObserver provides the Prometheus session observer.
func ProvideObserver() session.Observer {
	return metrics.NewSessionObserver()
}

// ProvideRegistry provides the local event listener registry.
func ProvideRegistry(log zerolog.Logger) *broadcast.Registry {
	return broadcast.NewRegistry(broadcast.DefaultBuffer, log)
}

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, error) {
	wire.Build(
		ProviderSet,
		wire.Bind(new(session.Store), new(*store.MemoryStore)),
	)
	return nil, nil
}
