package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ErrMalformedPayload is returned for a verified delivery that is not a
// typed JSON event.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// EventVariableCollected is sent by the agent when it captures a variable.
const EventVariableCollected = "variable_collected"

// Variable is a named value collected by the agent.
type Variable struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Event is what listeners receive for one webhook delivery.
type Event struct {
	Type     string          `json:"type"`
	Variable *Variable       `json:"variable,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Publisher fans an event out to listeners.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Service verifies and dispatches webhook deliveries.
type Service interface {
	Receive(ctx context.Context, signature string, body []byte) (Event, error)
}

type service struct {
	verifier  *Verifier
	publisher Publisher
	log       zerolog.Logger
}

// NewService creates a webhook service.
func NewService(verifier *Verifier, publisher Publisher, log zerolog.Logger) Service {
	return &service{
		verifier:  verifier,
		publisher: publisher,
		log:       log.With().Str("component", "webhook").Logger(),
	}
}

func (s *service) Receive(ctx context.Context, signature string, body []byte) (Event, error) {
	if err := s.verifier.Verify(signature, body); err != nil {
		s.log.Warn().Err(err).Msg("rejected webhook delivery")
		return Event{}, err
	}

	event, err := ParseEvent(body)
	if err != nil {
		s.log.Warn().Err(err).Msg("unreadable webhook delivery")
		return Event{}, err
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		return event, fmt.Errorf("publish %s: %w", event.Type, err)
	}
	s.log.Info().Str("type", event.Type).Msg("webhook event published")
	return event, nil
}

type payload struct {
	Type     string          `json:"type"`
	Variable *Variable       `json:"variable"`
	Data     json.RawMessage `json:"data"`
}

// ParseEvent turns a delivery body into an Event. A variable_collected
// event must name its variable; other events carry their data, or the
// whole body when there is no data field.
func ParseEvent(body []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	p.Type = strings.TrimSpace(p.Type)
	if p.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}

	if p.Type == EventVariableCollected {
		if p.Variable == nil || strings.TrimSpace(p.Variable.Name) == "" {
			return Event{}, fmt.Errorf("%w: variable_collected without a variable name", ErrMalformedPayload)
		}
		v := *p.Variable
		if len(v.Value) == 0 {
			v.Value = json.RawMessage("null")
		}
		return Event{Type: p.Type, Variable: &v}, nil
	}

	data := p.Data
	if len(data) == 0 {
		data = json.RawMessage(body)
	}
	return Event{Type: p.Type, Data: data}, nil
}
