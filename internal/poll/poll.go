//go:build linux

// Package poll wraps epoll(7). Every registration is edge-triggered: a readiness event is
// reported once per not-ready to ready transition, so a consumer of an event must repeat its
// accept/recv/send until it gets EAGAIN. Otherwise, the descriptor stalls until the next
// transition, which might never happen.
package poll

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

type Interest uint32

const (
	Readable Interest = unix.EPOLLIN | unix.EPOLLET
	Writable Interest = unix.EPOLLOUT | unix.EPOLLET
)

// Event is a readiness notification for a single descriptor.
type Event struct {
	Fd    int
	Flags uint32
}

func (e Event) Readable() bool {
	return e.Flags&unix.EPOLLIN != 0
}

func (e Event) Writable() bool {
	return e.Flags&unix.EPOLLOUT != 0
}

// Failed reports whether the descriptor is in an error or hangup state.
func (e Event) Failed() bool {
	return e.Flags&(unix.EPOLLERR|unix.EPOLLHUP) != 0
}

// Matches reports whether the event carries the readiness the descriptor was registered for.
func (e Event) Matches(interest Interest) bool {
	return e.Flags&uint32(interest)&^unix.EPOLLET != 0
}

// Poller is the readiness multiplexer. It isn't safe for concurrent use, except Wakeup.
type Poller struct {
	fd     int
	wakefd int
	events []unix.EpollEvent
	ready  []Event
}

// New creates an epoll instance able to report at most maxEvents per Wait call.
func New(maxEvents int) (*Poller, error) {
	if maxEvents <= 0 {
		return nil, fmt.Errorf("poll: max events must be positive, got %d", maxEvents)
	}

	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	// the wakeup descriptor is level-triggered: it's drained on every notification anyway
	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err = unix.EpollCtl(fd, unix.EPOLL_CTL_ADD, wakefd, &event); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(fd)
		return nil, fmt.Errorf("epoll_ctl: register wakeup: %w", err)
	}

	return &Poller{
		fd:     fd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, maxEvents),
		ready:  make([]Event, 0, maxEvents),
	}, nil
}

// Add registers the descriptor. Registering the same descriptor twice is an error.
func (p *Poller) Add(fd int, interest Interest) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, interest)
}

// Modify replaces the interest of an already registered descriptor, keeping the registration
// unique.
func (p *Poller) Modify(fd int, interest Interest) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, interest)
}

// Remove deregisters the descriptor. Closing a descriptor deregisters it implicitly, so
// descriptors that aren't registered are silently ignored.
func (p *Poller) Remove(fd int) error {
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
		return nil
	}

	return err
}

func (p *Poller) ctl(op, fd int, interest Interest) error {
	event := unix.EpollEvent{
		Events: uint32(interest),
		Fd:     int32(fd),
	}

	return unix.EpollCtl(p.fd, op, fd, &event)
}

// Wait blocks until at least one registered descriptor becomes ready, the timeout (in
// milliseconds, -1 for infinite) expires or the poller is woken up. The returned slice is
// reused by the next call. An interrupted wait returns no events and no error.
func (p *Poller) Wait(timeout int) ([]Event, error) {
	n, err := unix.EpollWait(p.fd, p.events, timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}

		return nil, fmt.Errorf("epoll_wait: %w", err)
	}

	p.ready = p.ready[:0]

	for _, event := range p.events[:n] {
		if int(event.Fd) == p.wakefd {
			p.drainWakeups()
			continue
		}

		p.ready = append(p.ready, Event{
			Fd:    int(event.Fd),
			Flags: event.Events,
		})
	}

	return p.ready, nil
}

// Wakeup makes a pending (or the next) Wait return. Safe to call from any goroutine.
func (p *Poller) Wakeup() error {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)

	_, err := unix.Write(p.wakefd, one[:])
	if errors.Is(err, unix.EAGAIN) {
		// the counter is saturated, so Wait is going to return anyway
		return nil
	}

	return err
}

func (p *Poller) drainWakeups() {
	var counter [8]byte
	_, _ = unix.Read(p.wakefd, counter[:])
}

// Close releases the epoll instance. Registered descriptors are left open.
func (p *Poller) Close() error {
	return errors.Join(unix.Close(p.wakefd), unix.Close(p.fd))
}
