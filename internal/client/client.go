// Package client implements the page side of the reload channel: it keeps one
// connection to the liveness server and reloads once that connection closes.
package client

import "time"

// ReadyState mirrors the transport's connection state.
type ReadyState int

const (
	ReadyConnecting ReadyState = iota
	ReadyOpen
	ReadyClosing
	ReadyClosed
)

// String returns the string representation of ReadyState
func (s ReadyState) String() string {
	switch s {
	case ReadyConnecting:
		return "CONNECTING"
	case ReadyOpen:
		return "OPEN"
	case ReadyClosing:
		return "CLOSING"
	case ReadyClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Handlers are the lifecycle callbacks of one transport handle.
// They are invoked from the transport's own goroutine, never from Start or Close.
type Handlers struct {
	OnOpen  func()
	OnClose func()
	OnError func(err error)
}

// Transport is a single connection handle.
type Transport interface {
	// Start registers h and begins connecting. Start on a closed handle is a no-op.
	Start(h Handlers)

	// ReadyState returns the current connection state.
	ReadyState() ReadyState

	// Close closes the handle.
	Close() error
}

// Dialer creates transport handles; it is the connect capability.
type Dialer interface {
	Open(url string) Transport
}

// Reloader is the reload capability.
type Reloader interface {
	Reload()
}

// ReloadFunc adapts a function to Reloader.
type ReloadFunc func()

// Reload implements Reloader.
func (f ReloadFunc) Reload() { f() }

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func())

// AfterFunc is the default Scheduler.
func AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
