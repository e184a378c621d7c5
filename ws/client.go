package ws

import (
	"context"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"

	"github.com/sonirico/libreg"
)

type (
	MessageHandler func(*Client, Message)

	// CloseHandler receives the reason the connection terminated.
	CloseHandler func(*Client, error)

	ClientOption func(*Client)

	// Client owns a single Conn. Every handler it attaches to the connection goes through a
	// libreg.Registry, with EventClose registered as the final event, so the registry's
	// bookkeeping is dropped as soon as the socket terminates.
	Client struct {
		params      OpenConnectionParamsRepo
		dialer      *websocket.Dialer
		errAdapters ErrorAdapters
		logger      libreg.Logger
		registry    *libreg.Registry[EventType, Message]

		onMessage MessageHandler
		onClose   CloseHandler

		keepAliveInterval time.Duration
		keepAliveFactory  KeepAliveMessageFactory
		passiveKeepAlive  PassiveKeepAliveHandler

		maxAttempts int
		backoff     BackoffCalculator

		mu      sync.Mutex
		conn    *Conn
		cleared chan struct{}
	}
)

func WithClientLogger(l libreg.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

func WithErrorAdapters(a ErrorAdapters) ClientOption {
	return func(c *Client) { c.errAdapters = a }
}

func WithCloseHandler(h CloseHandler) ClientOption {
	return func(c *Client) { c.onClose = h }
}

// WithKeepAlive sends factory() every interval while the connection is alive.
func WithKeepAlive(interval time.Duration, factory KeepAliveMessageFactory) ClientOption {
	return func(c *Client) {
		c.keepAliveInterval = interval
		c.keepAliveFactory = factory
	}
}

// WithPassiveKeepAlive calls h for every ping received, e.g. KeepAliveHandlerReplyPingWithPong.
func WithPassiveKeepAlive(h PassiveKeepAliveHandler) ClientOption {
	return func(c *Client) { c.passiveKeepAlive = h }
}

// WithDialRetries bounds the number of dial attempts performed by Open. Values below 1 mean a single attempt.
func WithDialRetries(attempts int) ClientOption {
	return func(c *Client) { c.maxAttempts = attempts }
}

func WithBackoff(b BackoffCalculator) ClientOption {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

func NewClient(
	params OpenConnectionParamsRepo,
	onMessage MessageHandler,
	opts ...ClientOption,
) *Client {
	c := &Client{
		params:      params,
		dialer:      websocket.DefaultDialer,
		logger:      libreg.NewNoopLogger(),
		onMessage:   onMessage,
		maxAttempts: 1,
		backoff:     ExponentialBackoffSeconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = libreg.NewRegistry[EventType, Message](libreg.WithLogger(c.logger))
	c.logger = c.logger.WithField("type", "ws_client")
	return c
}

// Open dials the server, retrying with back-off, and wires the handlers onto the new connection.
// It fails with ErrAlreadyOpen while the current connection is alive. Once that connection is
// down, Open waits for its close handlers to finish before dialing again.
func (c *Client) Open(ctx context.Context) error {
	if err := c.awaitPrevious(ctx); err != nil {
		return err
	}

	var (
		lastErr  error
		attempts = max(c.maxAttempts, 1)
		conn     *Conn
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		conn = NewConn(c.logger, c.dialer, c.params, c.errAdapters)
		cleared := c.attach(ctx, conn)

		lastErr = conn.Open(ctx)
		if lastErr == nil {
			c.mu.Lock()
			c.conn = conn
			c.cleared = cleared
			c.mu.Unlock()
			return nil
		}

		c.detach(conn)

		if attempt == attempts {
			break
		}
		ttw := c.backoff(attempt)
		c.logger.Infof("cannot connect due to %s, retrying in %s", lastErr, ttw)
		select {
		case <-ctx.Done():
			return errors.Wrap(ErrTerminated, ctx.Err().Error())
		case <-time.After(ttw):
		}
	}

	return WrapErrorUnrecoverableConnection(lastErr, conn.URL(), attempts)
}

// awaitPrevious makes sure the previous connection's final event has cleared the registry,
// so it cannot wipe the bookkeeping of the next one.
func (c *Client) awaitPrevious(ctx context.Context) error {
	c.mu.Lock()
	prev, cleared := c.conn, c.cleared
	c.mu.Unlock()

	if prev == nil {
		return nil
	}

	select {
	case <-prev.Done():
	default:
		return ErrAlreadyOpen
	}

	select {
	case <-cleared:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ErrTerminated, ctx.Err().Error())
	}
}

// attach wires the handlers onto conn. The returned channel is closed once the final close
// event has cleared the registry.
func (c *Client) attach(ctx context.Context, conn *Conn) chan struct{} {
	if c.onMessage != nil {
		c.registry.On(conn, EventMessage, libreg.NewCallback(func(m Message) {
			c.onMessage(c, m)
		}))
	}

	if c.passiveKeepAlive != nil {
		c.registry.On(conn, EventPing, libreg.NewCallback(func(m Message) {
			c.passiveKeepAlive(conn, m)
		}))
	}

	if c.keepAliveInterval > 0 && c.keepAliveFactory != nil {
		stop := make(chan struct{})
		c.registry.Once(conn, EventOpen, libreg.NewCallback(func(Message) {
			go runActiveKeepAlive(ctx, c.logger, conn, c.keepAliveInterval, c.keepAliveFactory, stop)
		}))
		c.registry.Once(conn, EventClose, libreg.NewCallback(func(Message) {
			close(stop)
		}))
	}

	c.registry.OnceFin(conn, EventClose, libreg.NewCallback(func(m Message) {
		c.logger.Infof("connection closed: %v", m.Err)
		if c.onClose != nil {
			c.onClose(c, m.Err)
		}
	}))

	// Registered on the emitter after the final, so it runs once the registry is cleared.
	cleared := make(chan struct{})
	conn.Once(EventClose, libreg.NewCallback(func(Message) {
		close(cleared)
	}))
	return cleared
}

// detach undoes attach for a connection that never opened.
func (c *Client) detach(conn *Conn) {
	c.registry.RemoveAllListeners(conn).Unfin(conn, EventClose)
}

// Send queues m on the current connection.
func (c *Client) Send(m Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotOpen
	}
	return conn.Write(m)
}

// Close terminates the current connection, if any. The close handler runs once the connection is down.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Done is closed when the current connection terminates. It is nil before a successful Open.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Done()
}

// Registry exposes the registry tracking the handlers attached to the connection.
func (c *Client) Registry() *libreg.Registry[EventType, Message] {
	return c.registry
}
