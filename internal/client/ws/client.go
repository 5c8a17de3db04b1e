// Package ws provides a WebSocket transport for the liveness client.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	gobwas "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/toy-hot-reload/internal/client"
	"github.com/omochice/toy-hot-reload/internal/liveness"
)

// Dialer opens gobwas/ws transport handles.
type Dialer struct {
	dialer gobwas.Dialer
}

// NewDialer creates a Dialer with no connect timeout.
func NewDialer() *Dialer {
	return &Dialer{dialer: gobwas.DefaultDialer}
}

// Open implements client.Dialer. The handle does not connect until Start.
func (d *Dialer) Open(url string) client.Transport {
	return &Transport{
		url:    url,
		dialer: d.dialer,
		state:  client.ReadyConnecting,
	}
}

// Transport is one client connection to the liveness server.
//
// A dial that fails reports only OnError: a connection that never opened
// never closes. After open, a clean close reports OnClose and an abnormal
// one reports OnError followed by OnClose.
type Transport struct {
	url    string
	dialer gobwas.Dialer

	mu      sync.Mutex
	state   client.ReadyState
	conn    net.Conn
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

// Start implements client.Transport.
func (t *Transport) Start(h client.Handlers) {
	t.mu.Lock()
	if t.state != client.ReadyConnecting || t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, h)
}

// ReadyState implements client.Transport.
func (t *Transport) ReadyState() client.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close implements client.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	switch t.state {
	case client.ReadyConnecting:
		if t.cancel == nil {
			t.state = client.ReadyClosed
		} else {
			t.state = client.ReadyClosing
			t.cancel()
		}
		t.mu.Unlock()
		return nil
	case client.ReadyOpen:
		t.state = client.ReadyClosing
		conn := t.conn
		t.mu.Unlock()

		t.writeMu.Lock()
		_ = wsutil.WriteClientMessage(conn, gobwas.OpClose, gobwas.NewCloseFrameBody(gobwas.StatusNormalClosure, ""))
		t.writeMu.Unlock()
		return conn.Close()
	default:
		t.mu.Unlock()
		return nil
	}
}

func (t *Transport) run(ctx context.Context, h client.Handlers) {
	defer t.cancel()

	conn, br, _, err := t.dialer.Dial(ctx, t.url)
	if err != nil {
		t.setState(client.ReadyClosed)
		if ctx.Err() == nil {
			h.OnError(&liveness.TransportError{Op: "dial", Err: err})
		}
		return
	}

	t.mu.Lock()
	if t.state != client.ReadyConnecting {
		t.state = client.ReadyClosed
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.state = client.ReadyOpen
	t.mu.Unlock()

	h.OnOpen()

	var src io.Reader = conn
	if br != nil {
		src = br
		defer gobwas.PutReader(br)
	}
	err = t.wait(conn, src)

	t.setState(client.ReadyClosed)
	conn.Close()

	if err != nil {
		h.OnError(err)
	}
	h.OnClose()
}

// wait reads frames until the connection ends, answering control frames.
func (t *Transport) wait(conn net.Conn, src io.Reader) error {
	control := wsutil.ControlFrameHandler(lockedWriter{mu: &t.writeMu, w: conn}, gobwas.StateClientSide)
	rd := &wsutil.Reader{
		Source:         src,
		State:          gobwas.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: control,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return t.readErr(err)
		}
		if hdr.OpCode.IsControl() {
			if err := control(hdr, rd); err != nil {
				return t.readErr(err)
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return t.readErr(err)
		}
	}
}

func (t *Transport) readErr(err error) error {
	if t.ReadyState() == client.ReadyClosing {
		return nil
	}

	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		switch closed.Code {
		case gobwas.StatusNormalClosure, gobwas.StatusGoingAway, gobwas.StatusNoStatusRcvd:
			return nil
		}
		return &liveness.TransportError{Op: "read", Err: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &liveness.TransportError{Op: "read", Err: liveness.ErrUnexpectedClose}
	}
	return &liveness.TransportError{Op: "read", Err: err}
}

func (t *Transport) setState(s client.ReadyState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

var (
	_ client.Dialer    = (*Dialer)(nil)
	_ client.Transport = (*Transport)(nil)
)
