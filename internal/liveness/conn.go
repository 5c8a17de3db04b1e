// Package liveness provides the transport-agnostic side of the reload channel:
// endpoint lifecycle, the endpoint registry and the error taxonomy.
package liveness

import "context"

// Conn abstracts one accepted connection that carries no application data.
// This interface isolates transport details from lifecycle bookkeeping.
type Conn interface {
	// Wait blocks until the peer goes away or ctx is done.
	// Returns nil when the peer closed cleanly or ctx ended the wait.
	Wait(ctx context.Context) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
