package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/utils/platformerrors"
)

// HandleError maps domain errors to HTTP responses. Errors without a known
// mapping go through the platform error writer.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		platformerrors.WriteNotFound(c, message)
	case errors.Is(err, session.ErrSessionNotActive), errors.Is(err, session.ErrSessionAlreadyExists):
		platformerrors.WriteConflict(c, message)
	default:
		platformerrors.WriteError(c, err, logger)
	}
}

// HandleNewError writes a typed error for route-level failures such as
// validation or authorization.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	perr := platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, errorType, message, nil)
	c.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(errorType), ErrorResponse{
		Error: &ErrorDetail{
			Message:   message,
			Type:      platformerrors.TypeString(errorType),
			Code:      perr.UUID,
			RequestID: perr.RequestID,
		},
	})
}
