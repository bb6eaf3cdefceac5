package http1

import (
	"errors"
	"io"
	"time"

	"github.com/indigo-web/filehost/http/mime"
	"github.com/indigo-web/filehost/http/status"
	"github.com/indigo-web/filehost/transport"
)

// File is an opened file to be streamed as the response body.
type File interface {
	io.ReaderAt
	io.Closer
}

// Response is a rendered response in the middle of its transmission. The head (with a literal
// body, if any) goes first, the file stream follows.
type Response struct {
	Code   status.Code
	buff   []byte
	offset int
	body   *Streamer
	file   io.Closer
}

// NewResponse renders a response with the head only. The length is what the Content-Length
// header is going to announce.
func NewResponse(code status.Code, length int64, contentType mime.MIME, date time.Time) *Response {
	return &Response{
		Code: code,
		buff: newSerializer(256).Head(code, length, contentType, date),
	}
}

// NewLiteral renders a text/plain response whose body is the status line itself, e.g.
// "404 Not Found".
func NewLiteral(code status.Code, date time.Time) *Response {
	line := status.Line(code)
	s := newSerializer(256)
	s.Head(code, int64(len(line)), mime.Plain, date)

	return &Response{
		Code: code,
		buff: s.Body(line),
	}
}

// Stream attaches the file to be sent after the head. The file is closed on Close.
func (r *Response) Stream(file File, chunk []byte) *Response {
	r.body = NewStreamer(file, chunk)
	r.file = file
	return r
}

// Flush sends as much as the socket takes. The response is done, when everything including the
// file is sent. Otherwise, Flush must be called again once the socket becomes writable.
func (r *Response) Flush(client transport.Client) (done bool, err error) {
	for r.offset < len(r.buff) {
		n, err := client.Write(r.buff[r.offset:])
		r.offset += n

		switch {
		case err == nil:
		case errors.Is(err, transport.ErrWouldBlock):
			return false, nil
		default:
			return false, err
		}
	}

	if r.body == nil {
		return true, nil
	}

	return r.body.Resume(client)
}

// Sent returns the total number of bytes taken by the socket.
func (r *Response) Sent() int64 {
	sent := int64(r.offset)
	if r.body != nil {
		sent += r.body.Sent()
	}

	return sent
}

// Close releases the streamed file, if any.
func (r *Response) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}
