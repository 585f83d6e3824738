// @title           Voice Intake API
// @version         1.0
// @description     Relays browser voice sessions to a conversational agent.
// @description     Reconciles agent tool calls into intake data and fans webhook events out to listeners.

// @contact.name   Voice Intake Team

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8190
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token from Keycloak

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain"
	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/domain/webhook"
	"voice-intake-api/internal/infrastructure/audit"
	"voice-intake-api/internal/infrastructure/auth"
	"voice-intake-api/internal/infrastructure/broadcast"
	"voice-intake-api/internal/infrastructure/elevenlabs"
	"voice-intake-api/internal/infrastructure/logger"
	"voice-intake-api/internal/infrastructure/metrics"
	"voice-intake-api/internal/infrastructure/observability"
	"voice-intake-api/internal/infrastructure/store"
	"voice-intake-api/internal/interfaces/httpserver"
	"voice-intake-api/internal/interfaces/httpserver/handlers"
	"voice-intake-api/internal/interfaces/httpserver/routes"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	janitor    *store.Janitor
	fanout     *broadcast.RedisFanout
	log        zerolog.Logger
}

// NewApplication creates a new application instance. fanout may be nil.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	janitor *store.Janitor,
	fanout *broadcast.RedisFanout,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		janitor:    janitor,
		fanout:     fanout,
		log:        log,
	}
}

// Start runs the application until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	if a.fanout != nil {
		if err := a.fanout.Start(ctx); err != nil {
			return err
		}
		defer a.fanout.Stop()
	}

	a.janitor.Start(ctx)
	defer a.janitor.Stop()

	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth validator")
	}

	// Upstream agent
	agentClient := elevenlabs.NewClient(cfg)
	dialer := elevenlabs.NewDialer(cfg, agentClient, log)
	relay := domain.ProvideRelay(dialer, cfg, log)

	// Session store and janitor
	sessionStore := store.NewMemoryStore(log)
	janitor := store.NewJanitor(sessionStore, cfg.SessionRetention, cfg.SessionCleanupInterval, log)

	recorder, err := provideRecorder(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session audit")
	}

	sessionService := domain.ProvideSessionService(
		relay,
		sessionStore,
		domain.ProvideReducer(),
		recorder,
		metrics.NewSessionObserver(),
		cfg,
		log,
	)

	// Webhook events
	registry := broadcast.NewRegistry(broadcast.DefaultBuffer, log)
	fanout, err := provideFanout(cfg, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize event fan-out")
	}
	webhookService := domain.ProvideWebhookService(domain.ProvideVerifier(cfg), providePublisher(registry, fanout), log)
	if cfg.WebhookSecret == "" {
		log.Warn().Msg("ELEVENLABS_WEBHOOK_SECRET is not set, all webhook deliveries will be rejected")
	}

	// HTTP
	handlerProvider := handlers.NewProvider(
		handlers.NewSessionHandler(sessionService),
		handlers.NewStreamHandler(cfg, sessionService, log),
		handlers.NewEventsHandler(cfg, registry, log),
		handlers.NewWebhookHandler(webhookService, log),
		handlers.NewTokenHandler(cfg, agentClient),
		handlers.NewAgentHandler(agentClient, log),
	)
	httpServer := httpserver.New(cfg, log, routes.NewProvider(handlerProvider, authValidator))

	app := NewApplication(httpServer, janitor, fanout, log)

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("upstream_mode", cfg.UpstreamMode).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// provideRecorder returns the Postgres audit recorder when DATABASE_URL is
// set, and a no-op recorder otherwise.
func provideRecorder(cfg *config.Config, log zerolog.Logger) (session.Recorder, error) {
	if cfg.DatabaseURL == "" {
		return session.NopRecorder{}, nil
	}
	db, err := audit.Connect(audit.Config{DSN: cfg.DatabaseURL, MaxOpenConns: 5, ConnMaxLifetime: 30 * time.Minute}, log)
	if err != nil {
		return nil, err
	}
	recorder, err := audit.NewRecorder(db, log)
	if err != nil {
		return nil, err
	}
	return recorder, nil
}

// provideFanout connects the Redis fan-out when REDIS_URL is set. It
// returns nil otherwise.
func provideFanout(cfg *config.Config, registry *broadcast.Registry, log zerolog.Logger) (*broadcast.RedisFanout, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	rdb, err := broadcast.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return broadcast.NewRedisFanout(rdb, cfg.RedisChannel, registry, log), nil
}

// providePublisher publishes through the fan-out when there is one, and to
// local listeners only otherwise.
func providePublisher(registry *broadcast.Registry, fanout *broadcast.RedisFanout) webhook.Publisher {
	if fanout != nil {
		return fanout
	}
	return registry
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
