package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"voice-intake-api/internal/config"
)

const (
	signedURLPath = "/v1/convai/conversation/get_signed_url"
	agentPath     = "/v1/convai/agents/{agent_id}"
	voicesPath    = "/v1/voices"
)

// ErrNoSignedURL is returned when the API answers without a URL.
var ErrNoSignedURL = errors.New("signed url missing from response")

// APIError is a non-2xx answer from one of the API's endpoints.
type APIError struct {
	Endpoint string
	Status   int
	Detail   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Endpoint, e.Status, e.Detail)
}

// newAPIError prefers the "detail" field of a JSON error body and falls back
// to the raw body.
func newAPIError(endpoint string, resp *resty.Response) *APIError {
	detail := strings.TrimSpace(resp.String())
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil && len(body.Detail) > 0 {
		var msg string
		if json.Unmarshal(body.Detail, &msg) == nil {
			detail = msg
		} else {
			detail = string(body.Detail)
		}
	}
	return &APIError{Endpoint: endpoint, Status: resp.StatusCode(), Detail: detail}
}

// Client calls the agent platform's REST API.
type Client struct {
	http    *resty.Client
	apiKey  string
	agentID string
}

// NewClient creates a REST client for cfg's API URL and credentials.
func NewClient(cfg *config.Config) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ElevenLabsAPIURL, "/")).
		SetHeader("User-Agent", "Voice-Intake-API/1.0").
		SetTimeout(10 * time.Second)

	return &Client{
		http:    http,
		apiKey:  cfg.ElevenLabsAPIKey,
		agentID: cfg.ElevenLabsAgentID,
	}
}

// AgentID returns the configured agent.
func (c *Client) AgentID() string {
	return c.agentID
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignedURL requests a short-lived conversation URL for the agent. The
// URL carries its own credentials.
func (c *Client) SignedURL(ctx context.Context) (string, error) {
	var result signedURLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("xi-api-key", c.apiKey).
		SetQueryParam("agent_id", c.agentID).
		SetResult(&result).
		Get(signedURLPath)
	if err != nil {
		return "", fmt.Errorf("failed to request signed url: %w", err)
	}
	if resp.IsError() {
		return "", newAPIError("signed url", resp)
	}
	if result.SignedURL == "" {
		return "", ErrNoSignedURL
	}
	return result.SignedURL, nil
}

// Agent fetches the configured agent's full configuration as returned by
// the API.
func (c *Client) Agent(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("xi-api-key", c.apiKey).
		SetHeader("Accept", "application/json").
		SetPathParam("agent_id", c.agentID).
		Get(agentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError("agent", resp)
	}
	if !json.Valid(resp.Body()) {
		return nil, fmt.Errorf("agent response is not valid JSON")
	}
	return json.RawMessage(resp.Body()), nil
}

// CheckConnection verifies that the API key is accepted and that the agent
// exists. A rejected check returns an *APIError naming the endpoint.
func (c *Client) CheckConnection(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("xi-api-key", c.apiKey).
		Get(voicesPath)
	if err != nil {
		return fmt.Errorf("failed to reach API: %w", err)
	}
	if resp.IsError() {
		return newAPIError("voices", resp)
	}

	_, err = c.Agent(ctx)
	return err
}
