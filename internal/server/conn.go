//go:build linux

package server

import (
	"github.com/indigo-web/filehost/internal/poll"
	"github.com/indigo-web/filehost/internal/protocol/http1"
	"github.com/indigo-web/filehost/transport"
)

type state uint8

const (
	awaitingRequest state = iota
	dispatching
	closed
)

// conn is the per-connection state. Only events matching the registered interest are
// dispatched, anything else closes the connection.
type conn struct {
	client     transport.Client
	state      state
	registered poll.Interest
	framer     *http1.Framer
	request    http1.Request
	response   *http1.Response
}

func newConn(client transport.Client, maxRequestSize, prealloc int) *conn {
	return &conn{
		client:     client,
		state:      awaitingRequest,
		registered: poll.Readable,
		framer:     http1.NewFramer(maxRequestSize, prealloc),
	}
}
