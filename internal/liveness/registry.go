package liveness

import (
	"context"
	"log/slog"
	"sync"
)

// Registry tracks live endpoints and logs their lifecycle.
// Endpoints are independent; the registry only keeps the set.
type Registry struct {
	endpoints map[*Endpoint]struct{}
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewRegistry creates a new Registry. A nil logger falls back to slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		endpoints: make(map[*Endpoint]struct{}),
		logger:    logger,
	}
}

// Register adds conn as a new OPEN endpoint.
func (r *Registry) Register(conn Conn) *Endpoint {
	ep := NewEndpoint(conn)

	r.mu.Lock()
	r.endpoints[ep] = struct{}{}
	r.mu.Unlock()

	r.logger.Info("open", "endpoint", ep.ID, "remote", conn.RemoteAddr())
	return ep
}

// Serve blocks until the endpoint's connection goes away, then records the
// terminal transition and releases the connection.
func (r *Registry) Serve(ctx context.Context, ep *Endpoint) {
	if err := ep.Conn.Wait(ctx); err != nil && ep.Fail() {
		r.logger.Error("error", "endpoint", ep.ID, "remote", ep.Conn.RemoteAddr(), "err", err)
	}
	r.release(ep)
}

// CloseAll closes every live endpoint's connection. Serve observes the close
// and records the transition.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ep := range r.endpoints {
		if err := ep.Conn.Close(); err != nil {
			r.logger.Debug("close endpoint", "endpoint", ep.ID, "err", err)
		}
	}
}

// Count returns number of live endpoints.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

func (r *Registry) release(ep *Endpoint) {
	r.mu.Lock()
	delete(r.endpoints, ep)
	r.mu.Unlock()

	if ep.Close() {
		r.logger.Info("disconnected", "endpoint", ep.ID, "remote", ep.Conn.RemoteAddr())
	}
	_ = ep.Conn.Close()
}
