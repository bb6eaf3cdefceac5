package http1

import (
	"errors"
	"fmt"
	"io"

	"github.com/indigo-web/filehost/transport"
)

// Streamer sends a file in bounded chunks. The read offset is advanced only by the number of
// bytes the socket actually took, so after a partial send the next chunk is re-read starting
// exactly at the first unsent byte. Nothing is retained in the chunk buffer between calls,
// which lets all the streamers share a single one.
type Streamer struct {
	file   io.ReaderAt
	chunk  []byte
	offset int64
}

func NewStreamer(file io.ReaderAt, chunk []byte) *Streamer {
	return &Streamer{
		file:  file,
		chunk: chunk,
	}
}

// Resume sends the file from the current offset until it's exhausted (done) or the socket
// would block. In the latter case nothing is considered sent for the blocked attempt, and
// Resume must be called again on the next readiness notification.
func (s *Streamer) Resume(client transport.Client) (done bool, err error) {
	for {
		n, err := s.file.ReadAt(s.chunk, s.offset)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return true, nil
			}

			return false, fmt.Errorf("read at %d: %w", s.offset, err)
		}

		sent, err := client.Write(s.chunk[:n])
		s.offset += int64(sent)

		switch {
		case err == nil:
		case errors.Is(err, transport.ErrWouldBlock):
			return false, nil
		default:
			return false, err
		}
	}
}

// Sent returns how many bytes of the file were taken by the socket so far.
func (s *Streamer) Sent() int64 {
	return s.offset
}
