package http1

import (
	"bytes"
	"errors"

	"github.com/indigo-web/filehost/http/method"
	"github.com/indigo-web/filehost/transport"
	"github.com/indigo-web/utils/uf"
)

var (
	ErrRequestTooLarge = errors.New("no request line within the size limit")
	ErrBadRequest      = errors.New("malformed request line")
)

var protocolMarker = []byte("HTTP")

// Framer accumulates the bytes of a request until the request line can be told apart. Headers
// and anything after them are of no interest and are never parsed.
type Framer struct {
	buff []byte
	max  int
	// scanned is how many bytes of buff were already searched for the space and the marker.
	scanned int
	spaced  bool
	marked  bool
}

// NewFramer returns a framer giving up on requests exceeding maxSize bytes without a request
// line.
func NewFramer(maxSize, prealloc int) *Framer {
	return &Framer{
		buff: make([]byte, 0, min(prealloc, maxSize)),
		max:  maxSize,
	}
}

// Fill reads from the client until the request line is framed or the socket is drained. In the
// latter case neither an error nor framing is reported, and Fill must be called again after the
// next readiness notification. A closed peer is reported as io.EOF.
func (f *Framer) Fill(client transport.Client) (framed bool, err error) {
	for {
		if f.Framed() {
			return true, nil
		}

		if len(f.buff) > f.max {
			return false, ErrRequestTooLarge
		}

		data, err := client.Read()
		switch {
		case err == nil:
			f.buff = append(f.buff, data...)
		case errors.Is(err, transport.ErrWouldBlock):
			return false, nil
		default:
			return false, err
		}
	}
}

// Framed reports whether the buffer holds the minimal evidence of a complete request line: a
// space and the protocol marker. Only the bytes appended since the previous call are searched,
// plus a few preceding ones, as the marker might be split between reads.
func (f *Framer) Framed() bool {
	if !f.spaced {
		f.spaced = bytes.IndexByte(f.buff[f.scanned:], ' ') != -1
	}

	if !f.marked {
		from := max(f.scanned-(len(protocolMarker)-1), 0)
		f.marked = bytes.Contains(f.buff[from:], protocolMarker)
	}

	f.scanned = len(f.buff)

	return f.spaced && f.marked
}

// Buffered returns everything received so far.
func (f *Framer) Buffered() []byte {
	return f.buff
}

type Request struct {
	Method method.Method
	// Token is the method exactly as it was received. Filled only for unsupported methods, as
	// they are the only ones it is logged for.
	Token  string
	Target string
}

// Parse extracts the method and the target out of `METHOD SP TARGET SP HTTP...`. The target is
// taken verbatim, so the whole request line must be already framed.
func Parse(data []byte) (Request, error) {
	sp := bytes.IndexByte(data, ' ')
	if sp == -1 {
		return Request{}, ErrBadRequest
	}

	rest := data[sp+1:]
	end := bytes.Index(rest, []byte(" HTTP"))
	if end == -1 {
		return Request{}, ErrBadRequest
	}

	req := Request{
		Method: method.Parse(uf.B2S(data[:sp])),
		Target: string(rest[:end]),
	}

	if req.Method == method.Unknown {
		req.Token = string(data[:sp])
	}

	return req, nil
}
