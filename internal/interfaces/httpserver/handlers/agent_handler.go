package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"voice-intake-api/internal/infrastructure/elevenlabs"
	"voice-intake-api/internal/interfaces/httpserver/responses"
	"voice-intake-api/internal/utils/platformerrors"
)

// AgentSource reads the agent's configuration and checks API access.
type AgentSource interface {
	AgentID() string
	Agent(ctx context.Context) (json.RawMessage, error)
	CheckConnection(ctx context.Context) error
}

// AgentHandler exposes the upstream agent to operators.
type AgentHandler struct {
	source AgentSource
	log    zerolog.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(client *elevenlabs.Client, log zerolog.Logger) *AgentHandler {
	return &AgentHandler{source: client, log: log.With().Str("handler", "agent").Logger()}
}

// Config returns the agent configuration as the API reports it.
func (h *AgentHandler) Config(ctx context.Context) (json.RawMessage, error) {
	raw, err := h.source.Agent(ctx)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeExternal, "failed to fetch agent configuration", err)
	}
	return raw, nil
}

// TestConnection checks the API key and then the agent. A failed check is
// reported in the response rather than as an error.
func (h *AgentHandler) TestConnection(ctx context.Context) *responses.ConnectionTestResponse {
	resp := &responses.ConnectionTestResponse{AgentID: h.source.AgentID()}

	err := h.source.CheckConnection(ctx)
	if err == nil {
		resp.Success = true
		resp.Message = "connected to agent platform"
		return resp
	}

	h.log.Warn().Err(err).Str("agent_id", resp.AgentID).Msg("connection test failed")
	resp.Error = err.Error()
	resp.Message = "failed to reach agent platform"

	var apiErr *elevenlabs.APIError
	if errors.As(err, &apiErr) {
		resp.Endpoint = apiErr.Endpoint
		resp.Status = apiErr.Status
		resp.Error = apiErr.Detail
		if apiErr.Endpoint == "agent" {
			resp.Message = "connected to agent platform but failed to verify agent"
		} else {
			resp.Message = "agent platform rejected the API key"
		}
	}
	return resp
}
