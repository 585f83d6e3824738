package relay

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// Side identifies who ended a pair.
type Side string

const (
	SideClient   Side = "client"
	SideUpstream Side = "upstream"
	SideServer   Side = "server"
)

// CloseInfo describes how a pair ended.
type CloseInfo struct {
	Side   Side
	Code   int
	Reason string
	// Err is the read or write error that ended the pump, if any.
	Err error
}

// Abnormal reports whether the close code is anything other than a normal
// closure, going away, or no status.
func (c CloseInfo) Abnormal() bool {
	switch c.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return false
	}
	return true
}

// Hooks observe frames as they pass through a pair.
type Hooks struct {
	// Upstream sees every upstream frame before it is forwarded to the
	// client. Returning false swallows the frame.
	Upstream func(messageType int, data []byte) bool
	// Client sees every client frame before it is forwarded upstream.
	Client func(messageType int, data []byte)
}

// Pair is one client connection bound to one upstream connection. Closing
// either side closes the other.
type Pair struct {
	SessionID string

	client   *lockedConn
	upstream *lockedConn

	finishOnce sync.Once
	info       CloseInfo
	done       chan struct{}
}

func newPair(sessionID string, client, upstream *lockedConn) *Pair {
	return &Pair{
		SessionID: sessionID,
		client:    client,
		upstream:  upstream,
		done:      make(chan struct{}),
	}
}

// Pump relays frames in both directions until either side closes, then
// closes the other side and returns how the pair ended.
func (p *Pair) Pump(h Hooks) CloseInfo {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		p.pump(p.upstream, p.client, SideUpstream, h.Upstream)
	}()
	go func() {
		defer wg.Done()
		var inspect func(int, []byte) bool
		if h.Client != nil {
			inspect = func(mt int, data []byte) bool {
				h.Client(mt, data)
				return true
			}
		}
		p.pump(p.client, p.upstream, SideClient, inspect)
	}()

	wg.Wait()
	return p.CloseInfo()
}

func (p *Pair) pump(src, dst *lockedConn, side Side, inspect func(int, []byte) bool) {
	for {
		mt, data, err := src.read()
		if err != nil {
			p.finish(closeInfoFrom(side, err))
			return
		}
		if inspect != nil && !inspect(mt, data) {
			continue
		}
		if err := dst.write(mt, data); err != nil {
			p.finish(CloseInfo{Side: opposite(side), Code: websocket.CloseAbnormalClosure, Err: err})
			return
		}
	}
}

// WriteUpstream sends a frame to the agent.
func (p *Pair) WriteUpstream(messageType int, data []byte) error {
	return p.upstream.write(messageType, data)
}

// WriteClient sends a frame to the browser.
func (p *Pair) WriteClient(messageType int, data []byte) error {
	return p.client.write(messageType, data)
}

// Close ends the pair from the server side. Both connections receive the
// close code. Safe to call more than once.
func (p *Pair) Close(code int, reason string) {
	p.finish(CloseInfo{Side: SideServer, Code: code, Reason: reason})
}

// Done is closed once both sides have been closed.
func (p *Pair) Done() <-chan struct{} {
	return p.done
}

// CloseInfo returns how the pair ended. It is the zero value until Done is
// closed.
func (p *Pair) CloseInfo() CloseInfo {
	select {
	case <-p.done:
		return p.info
	default:
		return CloseInfo{}
	}
}

func (p *Pair) finish(info CloseInfo) {
	p.finishOnce.Do(func() {
		p.info = info
		code := sendableCode(info.Code)
		_ = p.client.close(code, info.Reason)
		_ = p.upstream.close(code, info.Reason)
		close(p.done)
	})
}

func closeInfoFrom(side Side, err error) CloseInfo {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseInfo{Side: side, Code: ce.Code, Reason: ce.Text}
	}
	return CloseInfo{Side: side, Code: websocket.CloseAbnormalClosure, Err: err}
}

func opposite(side Side) Side {
	if side == SideClient {
		return SideUpstream
	}
	return SideClient
}
