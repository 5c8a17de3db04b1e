package liveness_test

import (
	"bytes"
	"context"
	"sync"

	"github.com/omochice/toy-hot-reload/internal/liveness"
)

// mockConn is a mock implementation of liveness.Conn for testing.
type mockConn struct {
	done       chan error
	closeOnce  sync.Once
	mu         sync.Mutex
	closed     int
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		done:       make(chan error, 1),
		remoteAddr: addr,
	}
}

func (m *mockConn) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-m.done:
		return err
	}
}

// hangUp makes Wait return err, as if the peer went away.
func (m *mockConn) hangUp(err error) {
	m.done <- err
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	m.closeOnce.Do(func() {
		select {
		case m.done <- nil:
		default:
		}
	})
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Compile-time check that mockConn implements liveness.Conn
var _ liveness.Conn = (*mockConn)(nil)

// logBuffer is a goroutine-safe sink for slog text output.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
