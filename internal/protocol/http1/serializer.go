package http1

import (
	"strconv"
	"time"

	"github.com/indigo-web/filehost/http/mime"
	"github.com/indigo-web/filehost/http/status"
)

const (
	protocol = "HTTP/1.1"
	crlf     = "\r\n"
)

var zoneGMT = time.FixedZone("GMT", 0)

// serializer renders the response head. Every response carries exactly the same set of
// headers: Content-Length, Content-Type, Date and Connection: close.
type serializer struct {
	buff []byte
}

func newSerializer(prealloc int) *serializer {
	return &serializer{
		buff: make([]byte, 0, prealloc),
	}
}

func (s *serializer) Head(code status.Code, length int64, contentType mime.MIME, date time.Time) []byte {
	s.appendProtocol()
	s.appendStatus(code)
	s.appendContentLength(length)
	s.appendKnownHeader("Content-Type: ", contentType)
	s.appendDate(date)
	s.appendKnownHeader("Connection: ", "close")
	s.crlf()

	return s.buff
}

// Body appends a literal entity after the head.
func (s *serializer) Body(body string) []byte {
	s.buff = append(s.buff, body...)
	return s.buff
}

func (s *serializer) appendProtocol() {
	s.buff = append(s.buff, protocol...)
	s.sp()
}

func (s *serializer) appendStatus(code status.Code) {
	s.buff = strconv.AppendUint(s.buff, uint64(code), 10)
	s.sp()
	s.buff = append(s.buff, status.Text(code)...)
	s.crlf()
}

func (s *serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendInt(s.buff, value, 10)
	s.crlf()
}

func (s *serializer) appendDate(date time.Time) {
	s.buff = append(s.buff, "Date: "...)
	s.buff = date.In(zoneGMT).AppendFormat(s.buff, time.RFC1123)
	s.crlf()
}

// appendKnownHeader writes the key that is known to already have a colon and a space included.
func (s *serializer) appendKnownHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}
