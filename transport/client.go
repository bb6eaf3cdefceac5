//go:build linux

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

type client struct {
	fd     int
	remote net.Addr
	buff   []byte
}

// NewClient wraps an already non-blocking connected socket. The buffer is owned by the client
// from now on and its length limits a single read.
func NewClient(fd int, remote net.Addr, buff []byte) Client {
	return &client{
		fd:     fd,
		remote: remote,
		buff:   buff,
	}
}

func (c *client) Fd() int {
	return c.fd
}

func (c *client) Read() ([]byte, error) {
	for {
		n, err := unix.Read(c.fd, c.buff)
		switch {
		case err == nil && n == 0:
			return nil, io.EOF
		case err == nil:
			return c.buff[:n], nil
		case errors.Is(err, unix.EINTR):
			continue
		case isWouldBlock(err):
			return nil, ErrWouldBlock
		default:
			return nil, fmt.Errorf("recv: %w", err)
		}
	}
}

func (c *client) Write(b []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, b)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case isWouldBlock(err):
			return 0, ErrWouldBlock
		default:
			return 0, fmt.Errorf("send: %w", err)
		}
	}
}

func (c *client) Remote() net.Addr {
	return c.remote
}

func (c *client) Close() error {
	return unix.Close(c.fd)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
