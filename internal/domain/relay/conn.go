package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the relay depends on.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens the upstream agent connection. Credentials stay inside the
// implementation; the browser never sees them.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

const closeWriteWait = time.Second

// lockedConn serializes writers. gorilla/websocket supports one concurrent
// writer, and both the pump and the bridge write to the upstream side.
type lockedConn struct {
	conn      Conn
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newLockedConn(c Conn) *lockedConn {
	return &lockedConn{conn: c}
}

func (c *lockedConn) read() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *lockedConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// close sends a close frame with code and reason, then closes the socket.
// Only the first call has any effect.
func (c *lockedConn) close(code int, reason string) error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, truncateReason(reason))
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Close reasons are limited to 123 bytes by the protocol.
func truncateReason(reason string) string {
	const maxReason = 123
	if len(reason) <= maxReason {
		return reason
	}
	return reason[:maxReason]
}

// sendableCode maps a received close code to one that may be written back
// on the other side. 1005 and 1006 are reserved for local reporting.
func sendableCode(code int) int {
	switch code {
	case websocket.CloseNoStatusReceived:
		return websocket.CloseNormalClosure
	case websocket.CloseAbnormalClosure, websocket.CloseTLSHandshake:
		return websocket.CloseInternalServerErr
	}
	if code < 1000 || code >= 5000 {
		return websocket.CloseNormalClosure
	}
	return code
}
