package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/webhook"
	"voice-intake-api/internal/infrastructure/metrics"
	"voice-intake-api/internal/interfaces/httpserver/responses"
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "ElevenLabs-Signature"

const maxWebhookBytes = 1 << 20

// WebhookHandler receives agent webhook deliveries.
type WebhookHandler struct {
	service webhook.Service
	log     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service webhook.Service, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With().Str("component", "webhook-handler").Logger(),
	}
}

// Receive verifies the delivery signature over the raw body and broadcasts
// the event to listeners.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		metrics.RecordWebhook("malformed")
		c.JSON(http.StatusRequestEntityTooLarge, responses.MessageResponse{Message: "Payload too large"})
		return
	}

	_, err = h.service.Receive(c.Request.Context(), c.GetHeader(SignatureHeader), body)
	switch {
	case err == nil:
		metrics.RecordWebhook("accepted")
		c.JSON(http.StatusOK, responses.MessageResponse{Message: "Webhook received successfully"})
	case errors.Is(err, webhook.ErrInvalidSignature):
		metrics.RecordWebhook("rejected")
		c.JSON(http.StatusUnauthorized, responses.MessageResponse{Message: "Invalid signature"})
	case errors.Is(err, webhook.ErrMalformedPayload):
		metrics.RecordWebhook("malformed")
		c.JSON(http.StatusBadRequest, responses.MessageResponse{Message: "Malformed payload"})
	default:
		metrics.RecordWebhook("failed")
		h.log.Error().Err(err).Msg("failed to broadcast webhook event")
		c.JSON(http.StatusInternalServerError, responses.MessageResponse{Message: "Failed to process webhook"})
	}
}
