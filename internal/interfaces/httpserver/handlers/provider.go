package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Session *SessionHandler
	Stream  *StreamHandler
	Events  *EventsHandler
	Webhook *WebhookHandler
	Token   *TokenHandler
	Agent   *AgentHandler
}

// NewProvider creates a new handler provider.
func NewProvider(
	session *SessionHandler,
	stream *StreamHandler,
	events *EventsHandler,
	webhook *WebhookHandler,
	token *TokenHandler,
	agent *AgentHandler,
) *Provider {
	return &Provider{
		Session: session,
		Stream:  stream,
		Events:  events,
		Webhook: webhook,
		Token:   token,
		Agent:   agent,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewSessionHandler,
	NewStreamHandler,
	NewEventsHandler,
	NewWebhookHandler,
	NewTokenHandler,
	NewAgentHandler,
	NewProvider,
)
