package ws

import (
	"context"
	"time"

	"github.com/sonirico/libreg"
)

type (
	KeepAliveMessageFactory func() Message

	// PassiveKeepAliveHandler reacts to control frames received from the server.
	PassiveKeepAliveHandler func(w Writer, m Message)
)

// NewKeepAliveMessageFactory returns a factory function for creating keep-alive messages.
func NewKeepAliveMessageFactory(
	mt MessageType,
	contentFactory func() []byte,
) KeepAliveMessageFactory {
	return func() Message {
		return NewMessage(mt, contentFactory())
	}
}

func KeepAliveHandlerReplyPingWithPong(w Writer, m Message) {
	if m.Type == PingMessage {
		_ = w.Write(NewPongMessage(m.Data))
	}
}

// runActiveKeepAlive sends a keep-alive frame every interval until stop is closed or ctx is done.
func runActiveKeepAlive(
	ctx context.Context,
	logger libreg.Logger,
	w Writer,
	interval time.Duration,
	factory KeepAliveMessageFactory,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := w.Write(factory()); err != nil {
				logger.Debugf("keep-alive stopped: %s", err)
				return
			}
		}
	}
}
