package client

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultURL is the well-known address of the liveness server.
	DefaultURL = "ws://localhost:8000/"

	// DefaultReloadDelay gives a restarting server time to rebind.
	DefaultReloadDelay = 2 * time.Second
)

// State is the lifecycle state of a Channel.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Channel owns the page's single connection to the liveness server.
type Channel struct {
	url      string
	delay    time.Duration
	dialer   Dialer
	reloader Reloader
	schedule Scheduler
	logger   *slog.Logger

	mu        sync.Mutex
	transport Transport
	state     State
}

// Option configures a Channel.
type Option func(*Channel)

// WithURL overrides DefaultURL.
func WithURL(url string) Option {
	return func(c *Channel) { c.url = url }
}

// WithReloadDelay overrides DefaultReloadDelay.
func WithReloadDelay(d time.Duration) Option {
	return func(c *Channel) { c.delay = d }
}

// WithScheduler overrides AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(c *Channel) { c.schedule = s }
}

// WithLogger sets the channel logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// New creates a Channel that connects with dialer and reloads with reloader.
func New(dialer Dialer, reloader Reloader, opts ...Option) *Channel {
	c := &Channel{
		url:      DefaultURL,
		delay:    DefaultReloadDelay,
		dialer:   dialer,
		reloader: reloader,
		schedule: AfterFunc,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init opens a transport to the server. A prior handle is closed before the
// new one starts connecting, and its callbacks are ignored from then on.
func (c *Channel) Init() {
	c.mu.Lock()
	if prev := c.transport; prev != nil {
		if err := prev.Close(); err != nil {
			c.logger.Debug("close previous transport", "err", err)
		}
	}
	t := c.dialer.Open(c.url)
	c.transport = t
	c.state = StateConnecting
	c.mu.Unlock()

	t.Start(Handlers{
		OnOpen:  func() { c.onOpen(t) },
		OnClose: func() { c.onClose(t) },
		OnError: func(err error) { c.onError(t, err) },
	})
}

// State returns the channel state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// current reports whether t is still the channel's handle.
func (c *Channel) current(t Transport) bool {
	return c.transport == t
}

func (c *Channel) onOpen(t Transport) {
	c.mu.Lock()
	if !c.current(t) || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateOpen
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.url)
}

func (c *Channel) onClose(t Transport) {
	c.mu.Lock()
	if !c.current(t) || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.mu.Unlock()

	c.logger.Info("disconnected", "url", c.url)

	if t.ReadyState() == ReadyClosed {
		c.logger.Debug("reload scheduled", "delay", c.delay)
		c.schedule(c.delay, c.reloader.Reload)
	}
}

// onError only logs. Recovery is driven by the close path alone.
func (c *Channel) onError(t Transport, err error) {
	c.mu.Lock()
	stale := !c.current(t)
	c.mu.Unlock()
	if stale {
		return
	}

	c.logger.Error("Websocket error observed", "url", c.url, "err", err)
}
