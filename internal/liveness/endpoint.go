package liveness

import (
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle state of an Endpoint.
type State int

const (
	StateOpen State = iota
	StateErrored
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateErrored:
		return "ERRORED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Endpoint represents one accepted connection.
// It starts OPEN and reaches CLOSED exactly once.
type Endpoint struct {
	ID   uuid.UUID
	Conn Conn

	mu    sync.Mutex
	state State
}

// NewEndpoint wraps conn in an OPEN endpoint.
func NewEndpoint(conn Conn) *Endpoint {
	return &Endpoint{
		ID:    uuid.New(),
		Conn:  conn,
		state: StateOpen,
	}
}

// State returns the current lifecycle state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Fail moves an OPEN endpoint to ERRORED.
// Reports whether the transition happened.
func (e *Endpoint) Fail() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateOpen {
		return false
	}
	e.state = StateErrored
	return true
}

// Close moves the endpoint to CLOSED.
// Reports whether the transition happened; only the first call does.
func (e *Endpoint) Close() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateClosed {
		return false
	}
	e.state = StateClosed
	return true
}
