package transport

import (
	"errors"
	"net"
)

// ErrWouldBlock is returned by non-blocking operations when the socket currently has nothing
// to offer or to take. It isn't a failure: the caller must return to the event loop and
// retry after the next readiness notification.
var ErrWouldBlock = errors.New("operation would block")

type Client interface {
	// Fd returns the descriptor the client is registered in the poller with.
	Fd() int
	// Read returns a piece of data received from the socket. The returned slice stays valid
	// until the next call. Peer's closing is reported as io.EOF.
	Read() ([]byte, error)
	// Write offers the data to the socket and returns how many bytes were actually taken.
	Write([]byte) (int, error)
	Remote() net.Addr
	Close() error
}
