package platformerrors_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/utils/platformerrors"
)

func TestAsError_KeepsWrappedType(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")
	inner := platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "upstream failed", errors.New("boom"))

	outer := platformerrors.AsError(ctx, platformerrors.LayerDomain, inner, "issue token")

	assert.Equal(t, platformerrors.ErrorTypeExternal, outer.Type)
	assert.Equal(t, inner.UUID, outer.UUID)
	assert.Equal(t, "req-1", outer.RequestID)
	assert.True(t, platformerrors.IsErrorType(outer, platformerrors.ErrorTypeExternal))
	assert.ErrorIs(t, outer, inner)
}

func TestAsError_PlainErrorIsInternal(t *testing.T) {
	err := platformerrors.AsError(context.Background(), platformerrors.LayerDomain, errors.New("x"), "wrap")
	assert.Equal(t, platformerrors.ErrorTypeInternal, err.Type)
	assert.Nil(t, platformerrors.AsError(context.Background(), platformerrors.LayerDomain, nil, "wrap"))
}

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		errType platformerrors.ErrorType
		status  int
		typ     string
	}{
		{platformerrors.ErrorTypeNotFound, http.StatusNotFound, "not_found_error"},
		{platformerrors.ErrorTypeExternal, http.StatusBadGateway, "external_error"},
		{platformerrors.ErrorTypeTimeout, http.StatusGatewayTimeout, "timeout_error"},
		{platformerrors.ErrorTypeInternal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		pe := platformerrors.NewError(context.Background(), platformerrors.LayerHandler, tc.errType, "msg", nil)
		platformerrors.WriteError(c, pe, zerolog.Nop())

		require.Equal(t, tc.status, w.Code)
		var body platformerrors.HTTPErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.typ, body.Error.Type)
		assert.Equal(t, pe.UUID, body.Error.Code)
	}
}

func TestWriteError_GenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	platformerrors.WriteError(c, errors.New("disk on fire"), zerolog.Nop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk on fire")
}
