package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/config"
)

type fakeTokens struct {
	ValidateFunc func(ctx context.Context, raw string) (*Claims, error)
}

func (f *fakeTokens) Validate(ctx context.Context, raw string) (*Claims, error) {
	return f.ValidateFunc(ctx, raw)
}

func newEngine(v *Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(v.Middleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestMiddleware(t *testing.T) {
	tokens := &fakeTokens{ValidateFunc: func(_ context.Context, raw string) (*Claims, error) {
		if raw == "good" {
			return &Claims{Subject: "user-42"}, nil
		}
		return nil, errors.New("bad token")
	}}
	r := newEngine(NewValidatorWith(tokens, zerolog.Nop()))

	tests := []struct {
		name     string
		url      string
		header   map[string]string
		wantCode int
		wantBody string
	}{
		{"bearer", "/whoami", map[string]string{"Authorization": "Bearer good"}, http.StatusOK, "user-42"},
		{"query token", "/whoami?access_token=good", nil, http.StatusOK, "user-42"},
		{"gateway header", "/whoami", map[string]string{"X-User-ID": "gw-user"}, http.StatusOK, "gw-user"},
		{"missing", "/whoami", nil, http.StatusUnauthorized, ""},
		{"invalid", "/whoami", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ""},
		{"wrong scheme", "/whoami", map[string]string{"Authorization": "Basic good"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	v, err := NewValidator(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	newEngine(v).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClaimsFrom(t *testing.T) {
	ok := jwt.MapClaims{
		"iss":                "https://auth.example/realms/intake",
		"aud":                []interface{}{"account", "voice-intake"},
		"sub":                "user-1",
		"preferred_username": "jane",
		"exp":                float64(2_000_000_000),
	}
	claims, err := claimsFrom(ok, "https://auth.example/realms/intake", "voice-intake")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "jane", claims.PreferredUsername)
	assert.Equal(t, []string{"account", "voice-intake"}, claims.Audience)
	assert.Equal(t, int64(2_000_000_000), claims.ExpiresAt.Unix())

	_, err = claimsFrom(ok, "https://other", "voice-intake")
	assert.ErrorContains(t, err, "issuer mismatch")

	_, err = claimsFrom(ok, "https://auth.example/realms/intake", "billing")
	assert.ErrorContains(t, err, "audience mismatch")

	noSub := jwt.MapClaims{"iss": "i"}
	_, err = claimsFrom(noSub, "i", "")
	assert.ErrorContains(t, err, "sub claim missing")
}
