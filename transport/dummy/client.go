package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/filehost/transport"
)

var _ transport.Client = new(Client)

// Client replays the scripted data on reads and records everything written. A nil piece of data
// is replayed as transport.ErrWouldBlock, so the caller must return to the event loop. Writes
// may be limited in order to imitate partial sends and congested sockets.
type Client struct {
	fd         int
	closed     bool
	once       bool
	pointer    int
	data       [][]byte
	written    []byte
	writeLimit int
	blockEvery int
	writes     int
	blocked    int
	writeErr   error
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		fd:   1,
		data: data,
	}
}

// Once makes the client report the peer as closed after the scripted data is exhausted.
// Otherwise, would-block is reported forever.
func (c *Client) Once() *Client {
	c.once = true
	return c
}

// WithFd sets the descriptor reported by the client.
func (c *Client) WithFd(fd int) *Client {
	c.fd = fd
	return c
}

// WriteLimit makes every write take at most n bytes.
func (c *Client) WriteLimit(n int) *Client {
	c.writeLimit = n
	return c
}

// BlockEvery makes every n-th write fail with transport.ErrWouldBlock.
func (c *Client) BlockEvery(n int) *Client {
	c.blockEvery = n
	return c
}

// FailWrites makes every write fail with the passed error.
func (c *Client) FailWrites(err error) *Client {
	c.writeErr = err
	return c
}

func (c *Client) Fd() int {
	return c.fd
}

func (c *Client) Read() ([]byte, error) {
	if c.closed {
		return nil, io.EOF
	}

	if c.pointer >= len(c.data) {
		if c.once {
			return nil, io.EOF
		}

		return nil, transport.ErrWouldBlock
	}

	piece := c.data[c.pointer]
	c.pointer++

	if piece == nil {
		return nil, transport.ErrWouldBlock
	}

	return piece, nil
}

func (c *Client) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	c.writes++
	if c.blockEvery > 0 && c.writes%c.blockEvery == 0 {
		c.blocked++
		return 0, transport.ErrWouldBlock
	}

	if c.writeLimit > 0 && len(p) > c.writeLimit {
		p = p[:c.writeLimit]
	}

	c.written = append(c.written, p...)

	return len(p), nil
}

func (*Client) Remote() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	return c.closed
}

// Written returns everything the client accepted so far.
func (c *Client) Written() string {
	return string(c.written)
}

// Blocked returns how many writes were refused with transport.ErrWouldBlock.
func (c *Client) Blocked() int {
	return c.blocked
}
