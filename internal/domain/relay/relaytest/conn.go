// Package relaytest provides in-memory WebSocket connections for tests.
package relaytest

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message written to a Conn.
type Frame struct {
	Type int
	Data []byte
}

// Conn is an in-memory relay.Conn. Frames pushed with Deliver are returned
// by ReadMessage; frames the code under test writes are recorded.
type Conn struct {
	incoming chan Frame
	closed   chan struct{}

	mu        sync.Mutex
	written   []Frame
	closeCode int
	closeText string
	peerClose *websocket.CloseError
	closeOnce sync.Once
	notify    chan struct{}
}

// NewConn creates an open connection.
func NewConn() *Conn {
	return &Conn{
		incoming: make(chan Frame, 64),
		closed:   make(chan struct{}),
		notify:   make(chan struct{}, 1),
	}
}

// Deliver queues a frame for the code under test to read.
func (c *Conn) Deliver(messageType int, data []byte) {
	c.incoming <- Frame{Type: messageType, Data: data}
}

// DeliverText queues a text frame.
func (c *Conn) DeliverText(s string) {
	c.Deliver(websocket.TextMessage, []byte(s))
}

// PeerClose simulates the remote end closing with code and text.
func (c *Conn) PeerClose(code int, text string) {
	c.mu.Lock()
	c.peerClose = &websocket.CloseError{Code: code, Text: text}
	c.mu.Unlock()
	c.shutdown()
}

// ReadMessage blocks until a frame is delivered or the connection closes.
func (c *Conn) ReadMessage() (int, []byte, error) {
	// Drain queued frames before reporting a close.
	select {
	case f := <-c.incoming:
		return f.Type, f.Data, nil
	default:
	}
	select {
	case f := <-c.incoming:
		return f.Type, f.Data, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.peerClose != nil {
			return 0, nil, c.peerClose
		}
		return 0, nil, errors.New("use of closed network connection")
	}
}

// WriteMessage records a frame.
func (c *Conn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	c.mu.Lock()
	c.written = append(c.written, Frame{Type: messageType, Data: append([]byte(nil), data...)})
	c.mu.Unlock()
	c.signal()
	return nil
}

// WriteControl records the close code of a close frame.
func (c *Conn) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType != websocket.CloseMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeCode == 0 && len(data) >= 2 {
		c.closeCode = int(data[0])<<8 | int(data[1])
		c.closeText = string(data[2:])
	}
	return nil
}

// Close closes the connection. ReadMessage unblocks with an error.
func (c *Conn) Close() error {
	c.shutdown()
	return nil
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.signal()
}

func (c *Conn) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Closed is closed when the connection is closed from either end.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// IsClosed reports whether the connection has been closed.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// CloseFrame returns the code and reason of the close frame written by the
// code under test. The code is zero if none was written.
func (c *Conn) CloseFrame() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeText
}

// Written returns a copy of every frame written so far.
func (c *Conn) Written() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.written...)
}

// WaitWritten blocks until at least n frames have been written or the
// timeout expires, and returns the frames written so far.
func (c *Conn) WaitWritten(n int, timeout time.Duration) []Frame {
	deadline := time.After(timeout)
	for {
		if frames := c.Written(); len(frames) >= n {
			return frames
		}
		select {
		case <-c.notify:
		case <-deadline:
			return c.Written()
		}
	}
}
