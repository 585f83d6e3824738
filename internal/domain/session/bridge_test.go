package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/domain/relay/relaytest"
	"voice-intake-api/internal/domain/session"
)

const waitFor = 2 * time.Second

func newTestRelay(upstream relay.Conn) *relay.Relay {
	dialer := relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) { return upstream, nil })
	return relay.New(dialer, relay.Config{
		HandshakeTimeout: time.Second,
		Audio:            relay.AudioConfig{AudioEncoding: "LINEAR16", SampleRate: 16000, Language: "en"},
	}, zerolog.Nop())
}

type calls struct {
	ready    int
	messages []session.Message
	audio    [][]byte
	errs     []error
	closed   []string
	states   []session.State
}

// recorder collects bridge callbacks.
type recorder struct {
	mu sync.Mutex
	calls
}

func (r *recorder) callbacks() session.Callbacks {
	return session.Callbacks{
		OnReady: func() { r.mu.Lock(); r.ready++; r.mu.Unlock() },
		OnMessage: func(m session.Message) {
			r.mu.Lock()
			r.messages = append(r.messages, m)
			r.mu.Unlock()
		},
		OnAudio: func(b []byte) {
			r.mu.Lock()
			r.audio = append(r.audio, b)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClosed: func(reason string) {
			r.mu.Lock()
			r.closed = append(r.closed, reason)
			r.mu.Unlock()
		},
		OnState: func(_, to session.State) {
			r.mu.Lock()
			r.states = append(r.states, to)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() calls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return calls{
		ready:    r.ready,
		messages: append([]session.Message(nil), r.messages...),
		audio:    append([][]byte(nil), r.audio...),
		errs:     append([]error(nil), r.errs...),
		closed:   append([]string(nil), r.closed...),
		states:   append([]session.State(nil), r.states...),
	}
}

type running struct {
	bridge   *session.Bridge
	client   *relaytest.Conn
	upstream *relaytest.Conn
	rec      *recorder
	result   chan error
}

func startBridge(t *testing.T) *running {
	t.Helper()
	r := &running{
		client:   relaytest.NewConn(),
		upstream: relaytest.NewConn(),
		rec:      &recorder{},
		result:   make(chan error, 1),
	}
	r.bridge = session.NewBridge(newTestRelay(r.upstream), r.rec.callbacks(), zerolog.Nop())
	go func() { r.result <- r.bridge.Run(context.Background(), r.client, "sess_test") }()

	// The config frame marks the relay as open.
	require.Len(t, r.upstream.WaitWritten(1, waitFor), 1)
	require.Eventually(t, func() bool { return r.bridge.State() == session.StateOpen }, waitFor, time.Millisecond)
	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.result:
		return err
	case <-time.After(waitFor):
		t.Fatal("bridge did not stop")
		return nil
	}
}

func TestBridge_HeartbeatAnsweredNotForwarded(t *testing.T) {
	r := startBridge(t)

	r.upstream.DeliverText(`{"type":"ping","ping_event":{"event_id":7,"ping_ms":50}}`)
	r.upstream.DeliverText(`{"type":"agent_response","agent_response_event":{"agent_response":"Hi there"}}`)

	up := r.upstream.WaitWritten(2, waitFor)
	require.Len(t, up, 2)
	assert.JSONEq(t, `{"type":"pong","event_id":7}`, string(up[1].Data))

	toClient := r.client.WaitWritten(1, waitFor)
	require.Len(t, toClient, 1)
	assert.Contains(t, string(toClient[0].Data), "agent_response")

	r.bridge.End("")
	require.NoError(t, r.wait(t))

	got := r.rec.snapshot()
	require.Len(t, got.messages, 1)
	assert.Equal(t, session.KindAgentResponse, got.messages[0].Kind)
	assert.Equal(t, "Hi there", got.messages[0].Text)
	assert.Len(t, r.client.Written(), 1, "ping must not reach the browser")
}

func TestBridge_ClassifiesAndForwards(t *testing.T) {
	r := startBridge(t)

	r.upstream.DeliverText(`{"type":"conversation_initiation_metadata","conversation_initiation_metadata_event":{"conversation_id":"conv_1"}}`)
	r.upstream.DeliverText(`{"type":"client_tool_call","client_tool_call":{"tool_name":"setFirstName","tool_call_id":"call_1","parameters":{"first_name":"Jane"}}}`)
	r.upstream.Deliver(websocket.BinaryMessage, []byte{1, 2, 3, 4})
	r.upstream.DeliverText(`{"type":"audio","audio_event":{"audio_base_64":"AQID","event_id":2}}`)
	r.upstream.DeliverText(`{"type":"interruption"}`)

	require.Len(t, r.client.WaitWritten(5, waitFor), 5)

	r.bridge.End("")
	require.NoError(t, r.wait(t))

	got := r.rec.snapshot()
	require.Len(t, got.messages, 3)
	assert.Equal(t, session.KindMetadata, got.messages[0].Kind)
	assert.Equal(t, "conv_1", got.messages[0].ConversationID)

	assert.Equal(t, session.KindToolCall, got.messages[1].Kind)
	require.NotNil(t, got.messages[1].ToolCall)
	assert.Equal(t, "setFirstName", got.messages[1].ToolCall.Name)
	assert.Equal(t, "call_1", got.messages[1].ToolCall.ID)
	assert.JSONEq(t, `{"first_name":"Jane"}`, string(got.messages[1].ToolCall.Parameters))

	assert.Equal(t, session.KindOther, got.messages[2].Kind)
	assert.Equal(t, "interruption", got.messages[2].Type)

	assert.Equal(t, [][]byte{{1, 2, 3, 4}, {1, 2, 3}}, got.audio)
	assert.Equal(t, int64(7), r.bridge.Stats().AudioBytes)
}

func TestBridge_TeardownSymmetry(t *testing.T) {
	tests := []struct {
		name  string
		close func(r *running)
	}{
		{"client first", func(r *running) { r.client.PeerClose(websocket.CloseNormalClosure, "") }},
		{"upstream first", func(r *running) { r.upstream.PeerClose(websocket.CloseNormalClosure, "") }},
		{"explicit end", func(r *running) { r.bridge.End("caller hung up") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startBridge(t)
			tt.close(r)
			require.NoError(t, r.wait(t))

			assert.True(t, r.client.IsClosed())
			assert.True(t, r.upstream.IsClosed())
			assert.Equal(t, session.StateClosed, r.bridge.State())

			got := r.rec.snapshot()
			assert.Equal(t, 1, got.ready)
			assert.Len(t, got.closed, 1)
			assert.Empty(t, got.errs)
			assert.Equal(t, []session.State{session.StateOpen, session.StateClosing, session.StateClosed}, got.states)

			select {
			case <-r.bridge.Done():
			default:
				t.Fatal("done not closed")
			}
		})
	}
}

func TestBridge_AbnormalCloseReported(t *testing.T) {
	r := startBridge(t)
	r.upstream.PeerClose(websocket.CloseTryAgainLater, "overloaded")
	require.NoError(t, r.wait(t))

	got := r.rec.snapshot()
	require.Len(t, got.errs, 1)
	var abnormal *session.AbnormalCloseError
	require.True(t, errors.As(got.errs[0], &abnormal))
	assert.Equal(t, relay.SideUpstream, abnormal.Side)
	assert.Equal(t, websocket.CloseTryAgainLater, abnormal.Code)
	assert.Equal(t, []string{"overloaded"}, got.closed)
}

func TestBridge_UpstreamErrorTearsDown(t *testing.T) {
	r := startBridge(t)
	r.upstream.DeliverText(`{"type":"error","message":"agent not found"}`)
	require.NoError(t, r.wait(t))

	toClient := r.client.Written()
	require.Len(t, toClient, 1)
	assert.Contains(t, string(toClient[0].Data), "agent not found")

	code, _ := r.client.CloseFrame()
	assert.Equal(t, websocket.CloseInternalServerErr, code)

	got := r.rec.snapshot()
	require.Len(t, got.errs, 1)
	var upstreamErr *session.UpstreamError
	require.True(t, errors.As(got.errs[0], &upstreamErr))
	assert.Equal(t, "agent not found", upstreamErr.Message)
}

func TestBridge_HandshakeFailure(t *testing.T) {
	client := relaytest.NewConn()
	rec := &recorder{}
	failing := relay.New(relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) {
		return nil, errors.New("dial tcp: connection refused")
	}), relay.Config{HandshakeTimeout: time.Second}, zerolog.Nop())

	bridge := session.NewBridge(failing, rec.callbacks(), zerolog.Nop())
	err := bridge.Run(context.Background(), client, "sess_test")

	require.ErrorIs(t, err, relay.ErrUpstreamUnreachable)
	got := rec.snapshot()
	assert.Equal(t, 0, got.ready)
	assert.Equal(t, []session.State{session.StateClosed}, got.states)
	require.Len(t, got.errs, 1)
	assert.Len(t, got.closed, 1)

	code, _ := client.CloseFrame()
	assert.Equal(t, websocket.CloseInternalServerErr, code)

	assert.ErrorIs(t, bridge.Run(context.Background(), client, "sess_test"), session.ErrBridgeStarted)
}

func TestBridge_ContextCancelClosesBothSides(t *testing.T) {
	client, upstream := relaytest.NewConn(), relaytest.NewConn()
	bridge := session.NewBridge(newTestRelay(upstream), session.Callbacks{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- bridge.Run(ctx, client, "sess_test") }()
	require.Len(t, upstream.WaitWritten(1, waitFor), 1)

	cancel()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("bridge did not stop")
	}
	code, _ := client.CloseFrame()
	assert.Equal(t, websocket.CloseGoingAway, code)
	assert.True(t, upstream.IsClosed())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind session.MessageKind
		text string
	}{
		{"agent response", `{"type":"agent_response","agent_response_event":{"agent_response":"Hello"}}`, session.KindAgentResponse, "Hello"},
		{"correction", `{"type":"agent_response_correction","agent_response_correction_event":{"corrected_agent_response":"Hel"}}`, session.KindAgentResponse, "Hel"},
		{"legacy speech", `{"type":"speech","text":"Welcome"}`, session.KindAgentResponse, "Welcome"},
		{"transcript", `{"type":"user_transcript","user_transcription_event":{"user_transcript":"my name is Jane"}}`, session.KindTranscript, "my name is Jane"},
		{"ping", `{"type":"ping","ping_event":{"event_id":1}}`, session.KindHeartbeat, ""},
		{"error object", `{"type":"error","error":{"message":"quota"}}`, session.KindError, "quota"},
		{"error data", `{"type":"error","data":{"message":"bad agent"}}`, session.KindError, "bad agent"},
		{"tool call without name", `{"type":"client_tool_call","client_tool_call":{}}`, session.KindOther, ""},
		{"not json", `hello`, session.KindOther, ""},
		{"bad audio", `{"type":"audio","audio_event":{"audio_base_64":"***"}}`, session.KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := session.Classify([]byte(tt.raw))
			assert.Equal(t, tt.kind, msg.Kind)
			assert.Equal(t, tt.text, msg.Text)
		})
	}
}

func TestClassify_KeepsRawFrame(t *testing.T) {
	raw := []byte(`{"type":"client_tool_call","client_tool_call":{"tool_name":"addDose","parameters":{"days":["M"]}}}`)
	msg := session.Classify(raw)

	var round map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(msg.Raw, &round))
	assert.Equal(t, raw, msg.Raw)
}
