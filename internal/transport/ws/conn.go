// Package ws provides the WebSocket transport for the liveness server.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	gobwas "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/toy-hot-reload/internal/liveness"
)

// Conn adapts an upgraded net.Conn to liveness.Conn using gobwas/ws.
// It never writes data frames; it only answers control frames.
type Conn struct {
	conn       net.Conn
	source     io.Reader
	remoteAddr string
	writeMu    sync.Mutex
	closeOnce  sync.Once
	closeErr   error
}

// NewConn wraps an upgraded connection with empty remote address.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, source: conn}
}

// NewConnWithAddr wraps an upgraded connection with the specified remote address.
func NewConnWithAddr(conn net.Conn, addr string) *Conn {
	return &Conn{conn: conn, source: conn, remoteAddr: addr}
}

// Wait implements liveness.Conn.
// Reads frames until the peer goes away, discarding any payload.
func (c *Conn) Wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	control := wsutil.ControlFrameHandler(lockedWriter{c}, gobwas.StateServerSide)
	rd := &wsutil.Reader{
		Source:         c.source,
		State:          gobwas.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: control,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return c.waitErr(ctx, err)
		}
		if hdr.OpCode.IsControl() {
			if err := control(hdr, rd); err != nil {
				return c.waitErr(ctx, err)
			}
			continue
		}
		if err := rd.Discard(); err != nil {
			return c.waitErr(ctx, err)
		}
	}
}

// Close implements liveness.Conn.
// Sends a going-away close frame and closes the connection. Safe to call twice.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = wsutil.WriteServerMessage(c.conn, gobwas.OpClose, gobwas.NewCloseFrameBody(gobwas.StatusGoingAway, ""))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr implements liveness.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

func (c *Conn) waitErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || isCleanClose(err) {
		return nil
	}
	return &liveness.TransportError{Op: "read", Err: err}
}

// isCleanClose reports whether err ends the connection without a failure:
// a close handshake, EOF, or our own Close.
func isCleanClose(err error) bool {
	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		return closed.Code == gobwas.StatusNormalClosure ||
			closed.Code == gobwas.StatusGoingAway ||
			closed.Code == gobwas.StatusNoStatusRcvd
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

type lockedWriter struct{ c *Conn }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

var _ liveness.Conn = (*Conn)(nil)
