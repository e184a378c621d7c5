// Package ws exposes a WebSocket connection as a libreg emitter.
package ws

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/sonirico/libreg"
)

type EventType string

const (
	// EventOpen fires once the handshake succeeded.
	EventOpen EventType = "open"
	// EventMessage fires for every data or binary frame.
	EventMessage EventType = "message"
	// EventPing fires for every ping control frame received.
	EventPing EventType = "ping"
	// EventPong fires for every pong control frame received.
	EventPong EventType = "pong"
	// EventClose fires exactly once, when the connection terminates for whatever reason.
	EventClose EventType = "close"
)

const writeTimeout = time.Second

type (
	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// Writer queues frames to be sent over the wire.
	Writer interface {
		Write(m Message) error
	}

	// Conn is a WebSocket connection that reports everything happening on it as events.
	// It satisfies libreg.Emitter, so its listeners can be managed by a libreg.Registry.
	Conn struct {
		*libreg.EventEmitter[EventType, Message]

		errAdapters ErrorAdapters
		params      OpenConnectionParamsRepo
		logger      libreg.Logger
		dialer      *websocket.Dialer
		conn        *websocket.Conn
		url         url.URL

		opened          atomic.Bool
		closeC          chan struct{}
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
		closeCode       atomic.Int64
		closeText       atomic.String

		send chan Message
	}
)

var _ libreg.Emitter[EventType, Message] = (*Conn)(nil)

func NewConn(
	logger libreg.Logger,
	dialer *websocket.Dialer,
	params OpenConnectionParamsRepo,
	errAdapters ErrorAdapters,
) *Conn {
	if logger == nil {
		logger = libreg.NewNoopLogger()
	}
	c := &Conn{
		EventEmitter: libreg.NewEventEmitter[EventType, Message](),
		errAdapters:  errAdapters,
		params:       params,
		dialer:       dialer,
		closeC:       make(chan struct{}),
		send:         make(chan Message),
	}
	c.logger = logger.WithField("net", "ws_connection").WithField("emitter", c.ID())
	return c
}

// Open dials the server. Once it returns nil the connection is live until Close is called,
// ctx is cancelled, or the connection breaks; EventClose is emitted in every case.
// When Open fails nothing is emitted.
func (c *Conn) Open(ctx context.Context) error {
	p, err := c.params.Get(ctx)
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}
	c.url = p.URL

	conn, resp, err := c.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = c.handleDialError(conn, resp, err); err != nil {
		c.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	c.logger.Debugf("success opening connection to %s", p.URL.String())

	c.conn = conn

	conn.SetPingHandler(func(appData string) error {
		c.logger.Debugln("<= [PING]")
		c.Emit(EventPing, NewPingMessage([]byte(appData)))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		c.logger.Debugln("<= [PONG]")
		c.Emit(EventPong, NewPongMessage([]byte(appData)))
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Debugf("<= [CLOSE] %d %s", code, text)
		c.closeCode.Store(int64(code))
		c.closeText.Store(text)
		c.setCloseReason(errors.Wrapf(ErrConnectionClosed, "closed by peer with code %d", code))
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(writeTimeout),
		)
		return nil
	})

	c.opened.Store(true)
	c.Emit(EventOpen, NewMessage(DataMessage, nil))

	go c.read()
	go c.write(ctx)

	return nil
}

// Write queues m to be sent. It fails once the connection is closed.
func (c *Conn) Write(m Message) error {
	if !c.opened.Load() {
		return ErrNotOpen
	}
	select {
	case c.send <- m:
		return nil
	case <-c.closeC:
		return ErrConnectionClosed
	}
}

// Close terminates the connection. Calling it more than once is harmless.
func (c *Conn) Close() {
	if !c.opened.Load() {
		return
	}
	c.setCloseReason(ErrTerminated)
	c.safeClose()
}

// Done is closed when the connection terminates.
func (c *Conn) Done() <-chan struct{} {
	return c.closeC
}

// CloseErr explains why the connection was closed. It is only meaningful after Done is closed.
func (c *Conn) CloseErr() error {
	return c.closeReason
}

// URL is the address of the last dial attempt.
func (c *Conn) URL() url.URL {
	return c.url
}

func (c *Conn) read() {
	defer c.safeClose()

	for {
		messageType, bts, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeC:
				return
			default:
			}
			c.logger.Debugf("websocket read finished: %s", err)
			c.setCloseReason(errors.Wrap(
				ErrConnectionClosed,
				"error occurred on websocket read: "+err.Error(),
			))
			return
		}
		// message types from ReadMessage are either binary or text
		switch messageType {
		case websocket.BinaryMessage:
			c.logger.Debugln("<= [BIN]")
			c.Emit(EventMessage, NewBinaryMessage(bts))
		default:
			c.logger.Debugf("<= [DATA] %s", string(bts))
			c.Emit(EventMessage, NewDataMessage(bts))
		}
	}
}

func (c *Conn) write(ctx context.Context) {
	defer c.safeClose()

	for {
		select {
		case <-c.closeC:
			return
		case <-ctx.Done():
			c.setCloseReason(ErrTerminated)
			return
		case msg := <-c.send:
			deadline := time.Now().Add(writeTimeout)
			_ = c.conn.SetWriteDeadline(deadline)

			var err error

			switch msg.Type {
			case PingMessage:
				c.logger.Debugln("=> [PING]")
				err = c.conn.WriteControl(websocket.PingMessage, msg.Data, deadline)
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					err = nil
				}
			case PongMessage:
				c.logger.Debugln("=> [PONG]")
				err = c.conn.WriteControl(websocket.PongMessage, msg.Data, deadline)
			case BinaryMessage:
				c.logger.Debugln("=> [BIN]")
				err = c.conn.WriteMessage(websocket.BinaryMessage, msg.Data)
			case CloseMessage:
				c.logger.Infoln("closing connection from our side")
				err = c.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(msg.Data)),
					deadline,
				)
			default:
				c.logger.Debugf("=> [DATA] %s", msg.Data)
				err = c.conn.WriteMessage(websocket.TextMessage, msg.Data)
			}

			if err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.setCloseReason(ErrConnectionClosed)
				} else {
					c.setCloseReason(errors.Wrap(ErrConnectionClosed, err.Error()))
				}
				return
			}
		}
	}
}

func (c *Conn) safeClose() {
	c.closeOnce.Do(c.close)
}

func (c *Conn) close() {
	c.setCloseReason(ErrTerminated)
	close(c.closeC)
	_ = c.conn.Close()

	c.logger.Debugf("connection closed: %s", c.closeReason)
	c.Emit(EventClose, NewCloseMessage(
		int(c.closeCode.Load()),
		[]byte(c.closeText.Load()),
		c.closeReason,
	))
}

func (c *Conn) setCloseReason(err error) {
	c.closeReasonOnce.Do(func() {
		c.closeReason = err
	})
}

func (c *Conn) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if c.errAdapters.OnDial != nil {
		return c.errAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, rerr := io.ReadAll(resp.Body)
			if rerr == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}
