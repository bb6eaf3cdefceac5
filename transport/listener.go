//go:build linux

package transport

import (
	"errors"
	"fmt"
	"net"

	"github.com/indigo-web/filehost/config"
	"golang.org/x/sys/unix"
)

// Listener is a bound, listening and non-blocking TCP socket.
type Listener struct {
	fd      int
	buffers int
}

// Listen sets up the listening socket on all the interfaces. Every failure is fatal: the
// half-initialized socket is closed and the failed step is reported.
func Listen(cfg config.NET) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	fail := func(step string, err error) (*Listener, error) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}

	// zeroed address is INADDR_ANY
	if err = unix.Bind(fd, &unix.SockaddrInet4{Port: cfg.ListenPort()}); err != nil {
		return fail(fmt.Sprintf("bind port %d", cfg.ListenPort()), err)
	}

	if err = unix.Listen(fd, cfg.Backlog); err != nil {
		return fail("listen", err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		return fail("set non-blocking", err)
	}

	return &Listener{
		fd:      fd,
		buffers: cfg.ReadBufferSize,
	}, nil
}

func (l *Listener) Fd() int {
	return l.fd
}

// Addr returns the actual address the socket is bound to. This is the only way to learn the
// port, when it was chosen by the kernel.
func (l *Listener) Addr() (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return nil, err
	}

	addr, ok := sockaddrToTCP(sa).(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected socket address %T", sa)
	}

	return addr, nil
}

// Accept takes a single pending connection and makes it non-blocking. ErrWouldBlock means
// the queue is drained.
func (l *Listener) Accept() (Client, error) {
	fd, sa, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		if isWouldBlock(err) {
			return nil, ErrWouldBlock
		}

		return nil, fmt.Errorf("accept: %w", err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}

	return NewClient(fd, sockaddrToTCP(sa), make([]byte, l.buffers)), nil
}

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// IsTransient reports whether an accept error is caused by a single broken pending connection
// or an interrupted call, so the drain may go on.
func IsTransient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.ECONNABORTED)
}

func sockaddrToTCP(sa unix.Sockaddr) net.Addr {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(addr.Addr[0], addr.Addr[1], addr.Addr[2], addr.Addr[3]), Port: addr.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append(net.IP(nil), addr.Addr[:]...), Port: addr.Port}
	default:
		return nil
	}
}
