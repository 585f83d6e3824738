package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Upstream authentication modes.
const (
	// UpstreamModeDirect dials the agent URL with the API key header.
	UpstreamModeDirect = "direct"
	// UpstreamModeSigned fetches a signed URL first and dials that.
	UpstreamModeSigned = "signed"
)

// Config holds all configuration for the voice-intake-api service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"voice-intake-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"VOICE_INTAKE_API_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth (Keycloak) - uses global auth vars
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`

	// ElevenLabs agent
	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsAgentID string `env:"ELEVENLABS_AGENT_ID"`
	ElevenLabsAPIURL  string `env:"ELEVENLABS_API_URL" envDefault:"https://api.elevenlabs.io"`

	// Upstream relay
	UpstreamWsURL            string        `env:"UPSTREAM_WS_URL" envDefault:"wss://api.elevenlabs.io/v1/convai/agents/{agent_id}/conversation"`
	UpstreamMode             string        `env:"UPSTREAM_MODE" envDefault:"direct"`
	UpstreamHandshakeTimeout time.Duration `env:"UPSTREAM_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	AudioEncoding            string        `env:"AUDIO_ENCODING" envDefault:"LINEAR16"`
	AudioSampleRate          int           `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioLanguage            string        `env:"AUDIO_LANGUAGE" envDefault:"en"`
	WsMaxMessageBytes        int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"1048576"`
	WsAllowedOrigins         []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	// Webhooks and server-sent events
	WebhookSecret    string        `env:"ELEVENLABS_WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"30m"`
	SSEKeepalive     time.Duration `env:"SSE_KEEPALIVE" envDefault:"30s"`

	// Optional backing services
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"voice_intake_events"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Session Management
	SessionRetention       time.Duration `env:"SESSION_RETENTION" envDefault:"30m"` // How long a closed session stays readable
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1m"`
	TranscriptLogLevel     string        `env:"TRANSCRIPT_LOG_LEVEL" envDefault:"hashed"` // none, hashed or full
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that env tags cannot express.
func (c *Config) Validate() error {
	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthAudience) == "" {
			return fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	if strings.TrimSpace(c.ElevenLabsAgentID) == "" {
		return fmt.Errorf("ELEVENLABS_AGENT_ID is required")
	}
	if strings.TrimSpace(c.ElevenLabsAPIKey) == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	switch c.UpstreamMode {
	case UpstreamModeDirect, UpstreamModeSigned:
	default:
		return fmt.Errorf("UPSTREAM_MODE must be %q or %q, got %q", UpstreamModeDirect, UpstreamModeSigned, c.UpstreamMode)
	}

	if c.UpstreamHandshakeTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_HANDSHAKE_TIMEOUT must be positive")
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive")
	}

	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// AgentWsURL returns the upstream WebSocket URL with the agent id substituted.
func (c *Config) AgentWsURL() string {
	return strings.ReplaceAll(c.UpstreamWsURL, "{agent_id}", c.ElevenLabsAgentID)
}
