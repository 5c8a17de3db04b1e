package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	gobwas "github.com/gobwas/ws"

	"github.com/omochice/toy-hot-reload/internal/assets"
	"github.com/omochice/toy-hot-reload/internal/liveness"
)

// Server accepts WebSocket connections and hands them to a Registry.
// It never sends application data; a connection's existence is the signal.
type Server struct {
	address  string
	registry *liveness.Registry
	assets   http.FileSystem
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	stopping bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithAssets serves the page-side client script from fsys at /reload.js.
func WithAssets(fsys http.FileSystem) Option {
	return func(s *Server) { s.assets = fsys }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a WebSocket server that uses the provided Registry.
func New(address string, registry *liveness.Registry, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		address:  address,
		registry: registry,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the address and serves until Stop is called.
// A bind failure is returned as *liveness.BindError.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return &liveness.BindError{Addr: s.address, Err: err}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	if s.assets != nil {
		mux.Handle("GET /"+assets.ScriptName, http.FileServer(s.assets))
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("WebSocket server started", "addr", listener.Addr().String())

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops accepting connections, closes every live endpoint and waits for
// them to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopping = true
	srv := s.server
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error("failed to shut down http server", "err", err)
		}
	}
	s.registry.CloseAll()
	s.cancel()
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := gobwas.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("Failed to accept WebSocket connection", "remote", r.RemoteAddr, "err", err)
		return
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	c := NewConnWithAddr(conn, r.RemoteAddr)
	if rw != nil {
		c.source = rw.Reader
	}
	ep := s.registry.Register(c)

	go func() {
		defer s.wg.Done()
		s.registry.Serve(s.ctx, ep)
	}()
}
