package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/config"
	"voice-intake-api/internal/domain/conversation"
	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/domain/session"
	"voice-intake-api/internal/infrastructure/elevenlabs"
	"voice-intake-api/internal/interfaces/httpserver/handlers"
	v1 "voice-intake-api/internal/interfaces/httpserver/routes/v1"
)

type MockSessionService struct {
	GetFunc      func(ctx context.Context, id string) (*session.Session, error)
	ListFunc     func(ctx context.Context, userID string) ([]*session.Session, error)
	EndFunc      func(ctx context.Context, id string) error
	SnapshotFunc func(ctx context.Context, id string) (conversation.Snapshot, error)
}

func (m *MockSessionService) Open(context.Context, relay.Conn, string) (*session.Session, error) {
	return nil, nil
}

func (m *MockSessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, session.ErrSessionNotFound
}

func (m *MockSessionService) List(ctx context.Context, userID string) ([]*session.Session, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockSessionService) End(ctx context.Context, id string) error {
	if m.EndFunc != nil {
		return m.EndFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionService) Snapshot(ctx context.Context, id string) (conversation.Snapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, id)
	}
	return conversation.NewSnapshot(), nil
}

func (m *MockSessionService) Schedule(context.Context, string) ([]session.MedicationSchedule, error) {
	return []session.MedicationSchedule{}, nil
}

func newRouter(svc session.Service, userID string) *gin.Engine {
	return newRouterWithAPI(svc, userID, "", "xi-test")
}

// newRouterWithAPI points the agent client at apiURL.
func newRouterWithAPI(svc session.Service, userID, apiURL, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		ElevenLabsAgentID: "agent_1",
		ElevenLabsAPIKey:  apiKey,
		ElevenLabsAPIURL:  apiURL,
		UpstreamMode:      config.UpstreamModeDirect,
	}
	client := elevenlabs.NewClient(cfg)
	provider := &handlers.Provider{
		Session: handlers.NewSessionHandler(svc),
		Token:   handlers.NewTokenHandler(cfg, client),
		Agent:   handlers.NewAgentHandler(client, zerolog.Nop()),
	}
	r := gin.New()
	v1.NewRoutes(provider).Register(r, func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	return r
}

func ownedBy(userID string) func(context.Context, string) (*session.Session, error) {
	return func(_ context.Context, id string) (*session.Session, error) {
		return &session.Session{
			ID:        id,
			Object:    "realtime.session",
			UserID:    userID,
			State:     session.StateOpen,
			CreatedAt: time.Unix(1700000000, 0),
			Snapshot:  conversation.Snapshot{Step: conversation.StepAccount},
		}, nil
	}
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestGetSession(t *testing.T) {
	tests := []struct {
		name     string
		get      func(context.Context, string) (*session.Session, error)
		wantCode int
	}{
		{"owned", ownedBy("user-1"), http.StatusOK},
		{"other user", ownedBy("user-2"), http.StatusForbidden},
		{"missing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&MockSessionService{GetFunc: tt.get}, "user-1")
			w := serve(r, http.MethodGet, "/v1/realtime/sessions/sess_1")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestGetSession_Body(t *testing.T) {
	r := newRouter(&MockSessionService{GetFunc: ownedBy("user-1")}, "user-1")
	w := serve(r, http.MethodGet, "/v1/realtime/sessions/sess_1")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sess_1", body["id"])
	assert.Equal(t, "open", body["status"])
	assert.Equal(t, "account", body["step"])
	assert.Equal(t, float64(1700000000), body["created_at"])
}

func TestListSessions_UsesCaller(t *testing.T) {
	var gotUser string
	svc := &MockSessionService{ListFunc: func(_ context.Context, userID string) ([]*session.Session, error) {
		gotUser = userID
		s, _ := ownedBy(userID)(context.Background(), "sess_1")
		return []*session.Session{s}, nil
	}}
	r := newRouter(svc, "user-9")
	w := serve(r, http.MethodGet, "/v1/realtime/sessions")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-9", gotUser)
	var body struct {
		Object string           `json:"object"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	assert.Len(t, body.Data, 1)
}

func TestEndSession(t *testing.T) {
	t.Run("live session", func(t *testing.T) {
		ended := ""
		svc := &MockSessionService{
			GetFunc: ownedBy("user-1"),
			EndFunc: func(_ context.Context, id string) error { ended = id; return nil },
		}
		w := serve(newRouter(svc, "user-1"), http.MethodDelete, "/v1/realtime/sessions/sess_1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "sess_1", ended)
		assert.JSONEq(t, `{"id":"sess_1","object":"realtime.session.ended","ended":true}`, w.Body.String())
	})

	t.Run("already closed", func(t *testing.T) {
		svc := &MockSessionService{
			GetFunc: ownedBy("user-1"),
			EndFunc: func(context.Context, string) error { return session.ErrSessionNotActive },
		}
		w := serve(newRouter(svc, "user-1"), http.MethodDelete, "/v1/realtime/sessions/sess_1")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("not owned", func(t *testing.T) {
		svc := &MockSessionService{
			GetFunc: ownedBy("user-2"),
			EndFunc: func(context.Context, string) error {
				t.Error("End must not be called")
				return nil
			},
		}
		w := serve(newRouter(svc, "user-1"), http.MethodDelete, "/v1/realtime/sessions/sess_1")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetSnapshot(t *testing.T) {
	svc := &MockSessionService{
		GetFunc: ownedBy("user-1"),
		SnapshotFunc: func(context.Context, string) (conversation.Snapshot, error) {
			return conversation.Snapshot{
				Step:        conversation.StepAccount,
				UserDetails: &conversation.UserDetails{FirstName: "Ada", Role: conversation.RolePrimaryUser},
			}, nil
		},
	}
	w := serve(newRouter(svc, "user-1"), http.MethodGet, "/v1/realtime/sessions/sess_1/snapshot")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SessionID string                `json:"session_id"`
		Snapshot  conversation.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sess_1", body.SessionID)
	require.NotNil(t, body.Snapshot.UserDetails)
	assert.Equal(t, "Ada", body.Snapshot.UserDetails.FirstName)
}

func TestGetSchedule(t *testing.T) {
	w := serve(newRouter(&MockSessionService{GetFunc: ownedBy("user-1")}, "user-1"), http.MethodGet, "/v1/realtime/sessions/sess_1/medications/schedule")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"sess_1","object":"list","data":[]}`, w.Body.String())
}

func TestSignedURL_DirectMode(t *testing.T) {
	r := newRouter(&MockSessionService{}, "user-1")
	req := httptest.NewRequest(http.MethodGet, "/v1/realtime/signed-url", nil)
	req.Host = "intake.example"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"signed_url":"wss://intake.example/ws","agent_id":"agent_1","mode":"direct"}`, w.Body.String())
}

// agentAPI serves the voices and agent endpoints for key xi-test and
// agent agent_1.
func agentAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "xi-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
			return
		}
		switch r.URL.Path {
		case "/v1/voices":
			_, _ = w.Write([]byte(`{"voices":[]}`))
		case "/v1/convai/agents/agent_1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"agent_id":"agent_1","name":"Intake"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetAgent(t *testing.T) {
	api := agentAPI(t)

	t.Run("proxied", func(t *testing.T) {
		r := newRouterWithAPI(&MockSessionService{}, "user-1", api.URL, "xi-test")
		w := serve(r, http.MethodGet, "/v1/realtime/agent")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.JSONEq(t, `{"agent_id":"agent_1","name":"Intake"}`, w.Body.String())
	})

	t.Run("upstream rejects", func(t *testing.T) {
		r := newRouterWithAPI(&MockSessionService{}, "user-1", api.URL, "wrong")
		w := serve(r, http.MethodGet, "/v1/realtime/agent")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestConnectionTest(t *testing.T) {
	api := agentAPI(t)

	t.Run("connected", func(t *testing.T) {
		r := newRouterWithAPI(&MockSessionService{}, "user-1", api.URL, "xi-test")
		w := serve(r, http.MethodGet, "/v1/realtime/connection-test")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "agent_1", body["agent_id"])
	})

	t.Run("bad key", func(t *testing.T) {
		r := newRouterWithAPI(&MockSessionService{}, "user-1", api.URL, "wrong")
		w := serve(r, http.MethodGet, "/v1/realtime/connection-test")
		require.Equal(t, http.StatusBadGateway, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "voices", body["endpoint"])
		assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
		assert.Equal(t, "invalid api key", body["error"])
	})
}
