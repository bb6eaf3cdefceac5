package http1

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/indigo-web/filehost/http/method"
	"github.com/indigo-web/filehost/transport/dummy"
	"github.com/stretchr/testify/require"
)

func TestFramer(t *testing.T) {
	t.Run("single read", func(t *testing.T) {
		framer := NewFramer(1024, 64)
		client := dummy.NewMockClient([]byte("GET / HTTP/1.1\r\n\r\n"))
		framed, err := framer.Fill(client)
		require.NoError(t, err)
		require.True(t, framed)
		require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(framer.Buffered()))
	})

	t.Run("across readiness events", func(t *testing.T) {
		framer := NewFramer(1024, 64)
		client := dummy.NewMockClient([]byte("GE"), nil, []byte("T /index"), nil, []byte(".html HT"), []byte("TP/1.1\r\n"))

		framed, err := framer.Fill(client)
		require.NoError(t, err)
		require.False(t, framed)

		// the space arrives, but the protocol marker doesn't
		framed, err = framer.Fill(client)
		require.NoError(t, err)
		require.False(t, framed)

		framed, err = framer.Fill(client)
		require.NoError(t, err)
		require.True(t, framed)

		req, err := Parse(framer.Buffered())
		require.NoError(t, err)
		require.Equal(t, method.GET, req.Method)
		require.Equal(t, "/index.html", req.Target)
	})

	t.Run("marker split byte by byte", func(t *testing.T) {
		framer := NewFramer(1024, 64)
		client := dummy.NewMockClient(
			[]byte("GET / H"), nil, []byte("T"), nil, []byte("T"), nil, []byte("P"), []byte("/1.1\r\n"),
		)

		for i := 0; i < 3; i++ {
			framed, err := framer.Fill(client)
			require.NoError(t, err)
			require.False(t, framed)
			require.Equal(t, len(framer.Buffered()), framer.scanned)
		}

		framed, err := framer.Fill(client)
		require.NoError(t, err)
		require.True(t, framed)
	})

	t.Run("marker before the space", func(t *testing.T) {
		framer := NewFramer(1024, 64)
		client := dummy.NewMockClient([]byte("HTTP"), nil, []byte("x"), nil, []byte(" "))

		for i := 0; i < 2; i++ {
			framed, err := framer.Fill(client)
			require.NoError(t, err)
			require.False(t, framed)
		}

		framed, err := framer.Fill(client)
		require.NoError(t, err)
		require.True(t, framed)
	})

	t.Run("peer closed", func(t *testing.T) {
		framer := NewFramer(1024, 64)
		client := dummy.NewMockClient([]byte("GET /")).Once()
		framed, err := framer.Fill(client)
		require.ErrorIs(t, err, io.EOF)
		require.False(t, framed)
	})

	t.Run("too large", func(t *testing.T) {
		const limit = 1024
		framer := NewFramer(limit, 64)
		junk := bytes.Repeat([]byte("A"), 100)
		pieces := make([][]byte, 0, 20)
		for i := 0; i < 20; i++ {
			pieces = append(pieces, junk)
		}

		framed, err := framer.Fill(dummy.NewMockClient(pieces...))
		require.ErrorIs(t, err, ErrRequestTooLarge)
		require.False(t, framed)
		require.LessOrEqual(t, len(framer.Buffered()), limit+len(junk))
	})

	t.Run("framed right at the limit", func(t *testing.T) {
		line := "GET /" + strings.Repeat("a", 1000) + " HTTP/1.1\r\n"
		framer := NewFramer(len(line), 64)
		framed, err := framer.Fill(dummy.NewMockClient([]byte(line)))
		require.NoError(t, err)
		require.True(t, framed)
	})
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		Request string
		Method  method.Method
		Token   string
		Target  string
	}{
		{"GET / HTTP/1.1\r\n\r\n", method.GET, "", "/"},
		{"HEAD /a/b.txt HTTP/1.0\r\nHost: x\r\n\r\n", method.HEAD, "", "/a/b.txt"},
		{"DELETE /file HTTP/1.1\r\n", method.DELETE, "", "/file"},
		{"POST /form HTTP/1.1\r\n", method.Unknown, "POST", "/form"},
		{"GET /HTTPdocs/x HTTP/1.1\r\n", method.GET, "", "/HTTPdocs/x"},
		{"GET /with space HTTP/1.1\r\n", method.GET, "", "/with space"},
	} {
		req, err := Parse([]byte(tc.Request))
		require.NoError(t, err, tc.Request)
		require.Equal(t, tc.Method, req.Method, tc.Request)
		require.Equal(t, tc.Token, req.Token, tc.Request)
		require.Equal(t, tc.Target, req.Target, tc.Request)
	}

	for _, malformed := range []string{"HTTP", "GET /HTTPonly", "GETHTTP /"} {
		_, err := Parse([]byte(malformed))
		require.ErrorIs(t, err, ErrBadRequest, malformed)
	}
}
