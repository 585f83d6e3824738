package handlers

import (
	"context"
	"strings"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/infrastructure/elevenlabs"
	"voice-intake-api/internal/interfaces/httpserver/responses"
	"voice-intake-api/internal/utils/platformerrors"
)

// SignedURLSource issues signed agent URLs.
type SignedURLSource interface {
	SignedURL(ctx context.Context) (string, error)
	AgentID() string
}

// TokenHandler tells browsers where to open their conversation.
type TokenHandler struct {
	mode   string
	source SignedURLSource
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(cfg *config.Config, client *elevenlabs.Client) *TokenHandler {
	return &TokenHandler{mode: cfg.UpstreamMode, source: client}
}

// Issue returns a signed agent URL in signed mode. In direct mode the
// browser must go through the relay, so relayURL is returned instead.
func (h *TokenHandler) Issue(ctx context.Context, relayURL string) (*responses.SignedURLResponse, error) {
	resp := &responses.SignedURLResponse{AgentID: h.source.AgentID(), Mode: h.mode}
	if h.mode != config.UpstreamModeSigned {
		resp.SignedURL = relayURL
		return resp, nil
	}

	url, err := h.source.SignedURL(ctx)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeExternal, "failed to obtain signed url", err)
	}
	resp.SignedURL = url
	return resp, nil
}

// RelayURL builds the browser-facing relay URL for a request host.
func RelayURL(host string, secure bool) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + strings.TrimSuffix(host, "/") + "/ws"
}
