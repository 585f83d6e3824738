package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/domain/relay"
	"voice-intake-api/internal/domain/relay/relaytest"
)

const waitFor = 2 * time.Second

func newRelay(dialer relay.Dialer, timeout time.Duration) *relay.Relay {
	return relay.New(dialer, relay.Config{
		HandshakeTimeout: timeout,
		Audio:            relay.AudioConfig{AudioEncoding: "LINEAR16", SampleRate: 16000, Language: "en"},
	}, zerolog.Nop())
}

func staticDialer(conn relay.Conn) relay.Dialer {
	return relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) { return conn, nil })
}

func openPair(t *testing.T) (*relay.Pair, *relaytest.Conn, *relaytest.Conn) {
	t.Helper()
	client, upstream := relaytest.NewConn(), relaytest.NewConn()
	pair, err := newRelay(staticDialer(upstream), time.Second).Open(context.Background(), client, "sess_test")
	require.NoError(t, err)
	return pair, client, upstream
}

func TestOpen_SendsInitialConfigFirst(t *testing.T) {
	pair, client, upstream := openPair(t)

	go pair.Pump(relay.Hooks{})
	client.Deliver(websocket.BinaryMessage, []byte{0x01, 0x02})

	frames := upstream.WaitWritten(2, waitFor)
	require.Len(t, frames, 2)

	assert.Equal(t, websocket.TextMessage, frames[0].Type)
	assert.JSONEq(t,
		`{"session_id":"sess_test","config":{"audio_encoding":"LINEAR16","sample_rate":16000,"language":"en"}}`,
		string(frames[0].Data))
	assert.Equal(t, relaytest.Frame{Type: websocket.BinaryMessage, Data: []byte{0x01, 0x02}}, frames[1])

	pair.Close(websocket.CloseNormalClosure, "")
}

func TestPump_ForwardsInOrderBothDirections(t *testing.T) {
	pair, client, upstream := openPair(t)
	go pair.Pump(relay.Hooks{})

	for i := 0; i < 5; i++ {
		upstream.DeliverText(`{"type":"agent_response","n":` + string(rune('0'+i)) + `}`)
	}
	upstream.Deliver(websocket.BinaryMessage, []byte("pcm"))
	client.DeliverText(`{"user_audio_chunk":"AAAA"}`)

	got := client.WaitWritten(6, waitFor)
	require.Len(t, got, 6)
	for i := 0; i < 5; i++ {
		assert.Contains(t, string(got[i].Data), `"n":`+string(rune('0'+i)))
	}
	assert.Equal(t, websocket.BinaryMessage, got[5].Type)

	up := upstream.WaitWritten(2, waitFor)
	require.Len(t, up, 2)
	assert.Equal(t, `{"user_audio_chunk":"AAAA"}`, string(up[1].Data))

	pair.Close(websocket.CloseNormalClosure, "")
}

func TestPump_UpstreamHookSwallows(t *testing.T) {
	pair, client, upstream := openPair(t)
	go pair.Pump(relay.Hooks{
		Upstream: func(mt int, data []byte) bool { return string(data) != "drop" },
	})

	upstream.DeliverText("drop")
	upstream.DeliverText("keep")

	got := client.WaitWritten(1, waitFor)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", string(got[0].Data))

	pair.Close(websocket.CloseNormalClosure, "")
}

func TestPump_TeardownSymmetry(t *testing.T) {
	tests := []struct {
		name   string
		closer func(client, upstream *relaytest.Conn)
		side   relay.Side
	}{
		{"client closes first", func(c, _ *relaytest.Conn) { c.PeerClose(websocket.CloseGoingAway, "tab closed") }, relay.SideClient},
		{"upstream closes first", func(_, u *relaytest.Conn) { u.PeerClose(websocket.CloseNormalClosure, "done") }, relay.SideUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, client, upstream := openPair(t)
			result := make(chan relay.CloseInfo, 1)
			go func() { result <- pair.Pump(relay.Hooks{}) }()

			tt.closer(client, upstream)

			select {
			case info := <-result:
				assert.Equal(t, tt.side, info.Side)
				assert.False(t, info.Abnormal())
			case <-time.After(waitFor):
				t.Fatal("pump did not return")
			}
			assert.True(t, client.IsClosed())
			assert.True(t, upstream.IsClosed())
			select {
			case <-pair.Done():
			default:
				t.Fatal("done not closed")
			}
		})
	}
}

func TestPump_AbnormalUpstreamClose(t *testing.T) {
	pair, client, upstream := openPair(t)
	result := make(chan relay.CloseInfo, 1)
	go func() { result <- pair.Pump(relay.Hooks{}) }()

	upstream.PeerClose(websocket.ClosePolicyViolation, "quota exceeded")

	info := <-result
	assert.True(t, info.Abnormal())
	assert.Equal(t, "quota exceeded", info.Reason)

	code, reason := client.CloseFrame()
	assert.Equal(t, websocket.ClosePolicyViolation, code)
	assert.Equal(t, "quota exceeded", reason)
}

func TestPair_CloseFromServer(t *testing.T) {
	pair, client, upstream := openPair(t)
	result := make(chan relay.CloseInfo, 1)
	go func() { result <- pair.Pump(relay.Hooks{}) }()

	pair.Close(websocket.CloseNormalClosure, "session ended")
	pair.Close(websocket.CloseInternalServerErr, "second close is ignored")

	info := <-result
	assert.Equal(t, relay.SideServer, info.Side)
	code, reason := client.CloseFrame()
	assert.Equal(t, websocket.CloseNormalClosure, code)
	assert.Equal(t, "session ended", reason)
	assert.True(t, upstream.IsClosed())
}

func TestOpen_HandshakeTimeout(t *testing.T) {
	client := relaytest.NewConn()
	hang := relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	pair, err := newRelay(hang, 50*time.Millisecond).Open(context.Background(), client, "sess_test")

	require.Nil(t, pair)
	require.ErrorIs(t, err, relay.ErrHandshakeTimeout)
	assert.Less(t, time.Since(start), waitFor)

	code, _ := client.CloseFrame()
	assert.Equal(t, websocket.CloseInternalServerErr, code)
	assert.True(t, client.IsClosed())

	frames := client.Written()
	require.Len(t, frames, 1)
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frames[0].Data, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.NotEmpty(t, msg.Data.Message)
}

func TestOpen_DialerIgnoringContextStillTimesOut(t *testing.T) {
	client := relaytest.NewConn()
	release := make(chan struct{})
	defer close(release)
	stuck := relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) {
		<-release
		return nil, errors.New("too late")
	})

	_, err := newRelay(stuck, 30*time.Millisecond).Open(context.Background(), client, "sess_test")
	require.ErrorIs(t, err, relay.ErrHandshakeTimeout)
}

func TestOpen_UpstreamUnreachable(t *testing.T) {
	client := relaytest.NewConn()
	refused := relay.DialerFunc(func(ctx context.Context) (relay.Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := newRelay(refused, time.Second).Open(context.Background(), client, "sess_test")
	require.ErrorIs(t, err, relay.ErrUpstreamUnreachable)

	code, reason := client.CloseFrame()
	assert.Equal(t, websocket.CloseInternalServerErr, code)
	assert.Contains(t, reason, "connection refused")
}
