package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gobwas "github.com/gobwas/ws"
	"github.com/gorilla/websocket"

	"github.com/omochice/toy-hot-reload/internal/liveness"
	"github.com/omochice/toy-hot-reload/internal/transport/ws"
)

// newWaitServer upgrades every request and reports the result of Conn.Wait.
func newWaitServer(t *testing.T, ctx context.Context) (*httptest.Server, <-chan error) {
	t.Helper()
	results := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := gobwas.UpgradeHTTP(r, w)
		if err != nil {
			t.Errorf("failed to upgrade: %v", err)
			return
		}
		c := ws.NewConnWithAddr(conn, r.RemoteAddr)
		defer c.Close()
		results <- c.Wait(ctx)
	}))
	return server, results
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	return conn
}

func waitResult(t *testing.T, results <-chan error) error {
	t.Helper()
	select {
	case err := <-results:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Wait to return")
		return nil
	}
}

func TestConn_ImplementsInterface(t *testing.T) {
	var _ liveness.Conn = (*ws.Conn)(nil)
}

func TestConn_Wait_NormalClosure(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Fatalf("failed to write close: %v", err)
	}

	if err := waitResult(t, results); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestConn_Wait_GoingAway(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "page unload")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Fatalf("failed to write close: %v", err)
	}

	if err := waitResult(t, results); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestConn_Wait_PeerDropped(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	conn.UnderlyingConn().Close()

	if err := waitResult(t, results); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestConn_Wait_DiscardsData(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ignored")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	select {
	case err := <-results:
		t.Fatalf("Wait() returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteMessage(websocket.CloseMessage, msg)

	if err := waitResult(t, results); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestConn_Wait_AnswersPing(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	pong := make(chan string, 1)
	conn.SetPongHandler(func(data string) error {
		pong <- data
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteControl(websocket.PingMessage, []byte("alive"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("failed to ping: %v", err)
	}

	select {
	case data := <-pong:
		if data != "alive" {
			t.Errorf("pong payload = %q, want %q", data, "alive")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pong")
	}

	conn.UnderlyingConn().Close()
	waitResult(t, results)
}

func TestConn_Wait_ProtocolError(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	// Unmasked binary frame; clients must mask.
	if _, err := conn.UnderlyingConn().Write([]byte{0x82, 0x00}); err != nil {
		t.Fatalf("failed to write raw frame: %v", err)
	}

	err := waitResult(t, results)
	var transportErr *liveness.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Wait() = %v, want *liveness.TransportError", err)
	}
}

func TestConn_Wait_AbnormalCloseCode(t *testing.T) {
	server, results := newWaitServer(t, context.Background())
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "boom")
	conn.WriteMessage(websocket.CloseMessage, msg)

	if err := waitResult(t, results); err == nil {
		t.Error("Wait() = nil, want error for abnormal close code")
	}
}

func TestConn_Wait_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server, results := newWaitServer(t, ctx)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	cancel()

	if err := waitResult(t, results); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}

func TestConn_Close(t *testing.T) {
	closed := make(chan *ws.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := gobwas.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		closed <- ws.NewConn(conn)
	}))
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	c := <-closed
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	c.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going away close", err)
	}
}

func TestConn_RemoteAddr(t *testing.T) {
	addrs := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := gobwas.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		c := ws.NewConnWithAddr(conn, r.RemoteAddr)
		defer c.Close()
		addrs <- c.RemoteAddr()
	}))
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	if addr := <-addrs; addr == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}
