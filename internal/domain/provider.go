package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/domain/webhook"
	"voice-intake-api/internal/utils/idgen"
	"voice-intake-api/internal/utils/redact"
)

// ProvideRelay provides the relay that opens upstream conversations.
func ProvideRelay(dialer relay.Dialer, cfg *config.Config, log zerolog.Logger) *relay.Relay {
	return relay.New(dialer, relay.Config{
		HandshakeTimeout: cfg.UpstreamHandshakeTimeout,
		Audio: relay.AudioConfig{
			AudioEncoding: cfg.AudioEncoding,
			SampleRate:    cfg.AudioSampleRate,
			Language:      cfg.AudioLanguage,
		},
	}, log)
}

// ProvideReducer provides the snapshot reducer with UUID medication ids.
func ProvideReducer() *conversation.Reducer {
	return conversation.NewReducer(idgen.UUIDGenerator{})
}

// ProvideSessionService provides a session service.
func ProvideSessionService(
	r *relay.Relay,
	store session.Store,
	reducer *conversation.Reducer,
	recorder session.Recorder,
	observer session.Observer,
	cfg *config.Config,
	log zerolog.Logger,
) session.Service {
	redactor := redact.New(redact.Level(cfg.TranscriptLogLevel), cfg.ElevenLabsAgentID)
	return session.NewService(r, store, conversation.DefaultTools(), reducer, recorder, observer, log,
		session.WithRedactor(redactor))
}

// ProvideVerifier provides the webhook signature verifier.
func ProvideVerifier(cfg *config.Config) *webhook.Verifier {
	return webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)
}

// ProvideWebhookService provides the webhook service.
func ProvideWebhookService(verifier *webhook.Verifier, publisher webhook.Publisher, log zerolog.Logger) webhook.Service {
	return webhook.NewService(verifier, publisher, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideRelay,
	ProvideReducer,
	ProvideSessionService,
	ProvideVerifier,
	ProvideWebhookService,
)
