package liveness

import (
	"errors"
	"fmt"
)

// ErrUnexpectedClose is reported when an opened connection drops without a
// clean close handshake.
var ErrUnexpectedClose = errors.New("liveness: connection closed unexpectedly")

// BindError is returned when the server cannot acquire its listening address.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("liveness: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// TransportError wraps a failure of the underlying transport on either side.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("liveness: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
