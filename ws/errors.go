package ws

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrNotOpen          = errors.New("connection is not open")
	ErrAlreadyOpen      = errors.New("connection is already open")
)

// ErrUnrecoverableConnection is returned by Client.Open once every dial attempt has failed.
type ErrUnrecoverableConnection struct {
	err      error
	url      url.URL
	attempts int
}

func (e ErrUnrecoverableConnection) Error() string {
	return fmt.Sprintf("unrecoverable connection error after %d attempts: %s to %s", e.attempts, e.err, e.url.String())
}

func (e ErrUnrecoverableConnection) Unwrap() error { return e.err }

func WrapErrorUnrecoverableConnection(err error, url url.URL, attempts int) error {
	if err == nil {
		return nil
	}
	return &ErrUnrecoverableConnection{
		err:      err,
		url:      url,
		attempts: attempts,
	}
}
