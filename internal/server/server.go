//go:build linux

package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/indigo-web/filehost/config"
	"github.com/indigo-web/filehost/internal/poll"
	"github.com/indigo-web/filehost/internal/protocol/http1"
	"github.com/indigo-web/filehost/router"
	"github.com/indigo-web/filehost/transport"
	"github.com/sirupsen/logrus"
)

var ErrListenerFailed = errors.New("listening socket reported an error or hangup")

// Server is the single-threaded event loop. Everything except Stop must be called from the
// goroutine running the loop.
type Server struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	router   *router.Router
	poller   *poll.Poller
	listener *transport.Listener
	conns    map[int]*conn
	stop     atomic.Bool
}

// New binds the listening socket and registers it for readiness notifications. Any error is
// fatal: nothing is left open in that case.
func New(cfg *config.Config, r *router.Router, log logrus.FieldLogger) (*Server, error) {
	listener, err := transport.Listen(cfg.NET)
	if err != nil {
		return nil, err
	}

	poller, err := poll.New(cfg.NET.MaxEvents)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	if err = poller.Add(listener.Fd(), poll.Readable); err != nil {
		_ = poller.Close()
		_ = listener.Close()
		return nil, fmt.Errorf("register listener: %w", err)
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		router:   r,
		poller:   poller,
		listener: listener,
		conns:    make(map[int]*conn),
	}, nil
}

// Addr returns the address the listener is actually bound to.
func (s *Server) Addr() (*net.TCPAddr, error) {
	return s.listener.Addr()
}

// Run processes readiness events until Stop is called or a fatal error occurs. Errors of
// individual connections are never returned.
func (s *Server) Run() error {
	for !s.stop.Load() {
		events, err := s.poller.Wait(-1)
		if err != nil {
			return err
		}

		for _, event := range events {
			if err = s.handle(event); err != nil {
				return err
			}
		}
	}

	return nil
}

// Stop makes Run return after the batch of events currently being processed. Safe to call
// from any goroutine, but not after Close.
func (s *Server) Stop() {
	s.stop.Store(true)
	if err := s.poller.Wakeup(); err != nil {
		s.log.WithError(err).Warn("cannot wake the event loop up")
	}
}

// Close drops all the connections and releases the listener and the poller.
func (s *Server) Close() error {
	for _, c := range s.conns {
		s.close(c)
	}

	return errors.Join(s.listener.Close(), s.poller.Close())
}

func (s *Server) handle(event poll.Event) error {
	if event.Fd == s.listener.Fd() {
		if event.Failed() {
			return ErrListenerFailed
		}

		s.acceptAll()
		return nil
	}

	c, found := s.conns[event.Fd]
	if !found {
		return nil
	}

	if event.Failed() || !event.Matches(c.registered) {
		s.log.WithFields(logrus.Fields{
			"fd":     event.Fd,
			"remote": c.client.Remote(),
		}).Debug("unexpected event, dropping the connection")
		s.close(c)
		return nil
	}

	switch c.state {
	case awaitingRequest:
		s.receive(c)
	case dispatching:
		s.flush(c)
	}

	return nil
}

// acceptAll drains the accept queue, as the listener is edge-triggered and won't be reported
// again until a new connection arrives.
func (s *Server) acceptAll() {
	for {
		client, err := s.listener.Accept()
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrWouldBlock):
			return
		case transport.IsTransient(err):
			continue
		default:
			s.log.WithError(err).Warn("accept drain aborted")
			return
		}

		log := s.log.WithFields(logrus.Fields{
			"fd":     client.Fd(),
			"remote": client.Remote(),
		})

		if err = s.poller.Add(client.Fd(), poll.Readable); err != nil {
			log.WithError(err).Warn("cannot register connection")
			_ = client.Close()
			continue
		}

		s.conns[client.Fd()] = newConn(client, s.cfg.NET.MaxRequestSize, s.cfg.NET.ReadBufferSize)
		log.Debug("accepted connection")
	}
}

func (s *Server) receive(c *conn) {
	framed, err := c.framer.Fill(c.client)
	if err != nil {
		s.fail(c, err)
		return
	}

	if !framed {
		return
	}

	c.request, err = http1.Parse(c.framer.Buffered())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.response, err = s.router.Route(c.request)
	if err != nil {
		s.connLog(c).WithField("method", c.request.Token).Warn("unsupported method")
		s.close(c)
		return
	}

	c.state = dispatching
	s.flush(c)
}

func (s *Server) flush(c *conn) {
	done, err := c.response.Flush(c.client)
	if err != nil {
		s.fail(c, err)
		return
	}

	if done {
		s.connLog(c).WithFields(logrus.Fields{
			"method": c.request.Method,
			"target": c.request.Target,
			"status": c.response.Code,
			"bytes":  c.response.Sent(),
		}).Info("request served")
		s.close(c)
		return
	}

	if c.registered == poll.Writable {
		return
	}

	s.connLog(c).Debug("send would block, waiting for the socket to become writable")
	if err = s.poller.Modify(c.client.Fd(), poll.Writable); err != nil {
		s.fail(c, err)
		return
	}

	c.registered = poll.Writable
}

func (s *Server) fail(c *conn, err error) {
	log := s.connLog(c)
	if errors.Is(err, io.EOF) {
		log.Debug("peer closed the connection")
	} else {
		log.WithError(err).Warn("dropping the connection")
	}

	s.close(c)
}

// close must be the only way a connection is released, so that no events are dispatched for
// it afterwards.
func (s *Server) close(c *conn) {
	if c.state == closed {
		return
	}

	fd := c.client.Fd()
	c.state = closed
	delete(s.conns, fd)

	if c.response != nil {
		if err := c.response.Close(); err != nil {
			s.connLog(c).WithError(err).Warn("cannot close the file")
		}
	}

	_ = s.poller.Remove(fd)
	_ = c.client.Close()
}

func (s *Server) connLog(c *conn) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"fd":     c.client.Fd(),
		"remote": c.client.Remote(),
	})
}
