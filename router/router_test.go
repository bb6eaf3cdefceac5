package router

import (
	"bufio"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/dchest/uniuri"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/indigo-web/filehost/http/method"
	"github.com/indigo-web/filehost/internal/protocol/http1"
	"github.com/indigo-web/filehost/internal/resource"
	"github.com/indigo-web/filehost/transport/dummy"
	"github.com/stretchr/testify/require"
)

type stubbornFS struct {
	billy.Filesystem
}

func (stubbornFS) Remove(string) error {
	return errors.New("operation not permitted")
}

type lockedFS struct {
	billy.Filesystem
}

func (lockedFS) Open(string) (billy.File, error) {
	return nil, errors.New("permission denied")
}

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}

	require.NoError(t, fs.MkdirAll("subdir", 0o755))

	return fs
}

func newRouter(fs billy.Filesystem) *Router {
	r := New(resource.New(fs, "index.html"), 64)
	date := time.Date(2023, time.December, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		return date
	}

	return r
}

// serve routes the request and flushes the response through a congested client.
func serve(t *testing.T, r *Router, m method.Method, target string) string {
	resp, err := r.Route(http1.Request{Method: m, Target: target})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Close())
	}()

	client := dummy.NewMockClient().WriteLimit(5).BlockEvery(4)
	for i := 0; ; i++ {
		require.Less(t, i, 10_000)

		done, err := resp.Flush(client)
		require.NoError(t, err)
		if done {
			break
		}
	}

	require.Equal(t, int64(len(client.Written())), resp.Sent())

	return client.Written()
}

func parse(t *testing.T, data string, m method.Method) (*stdhttp.Response, string) {
	req, err := stdhttp.NewRequest(m.String(), "/", nil)
	require.NoError(t, err)
	resp, err := stdhttp.ReadResponse(bufio.NewReader(strings.NewReader(data)), req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestGet(t *testing.T) {
	index := uniuri.NewLen(42)
	big := uniuri.NewLen(1000)
	r := newRouter(newFS(t, map[string]string{
		"index.html":   index,
		"data/big.bin": big,
		"notes.txt":    "hello",
	}))

	t.Run("index", func(t *testing.T) {
		resp, body := parse(t, serve(t, r, method.GET, "/"), method.GET)
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, int64(42), resp.ContentLength)
		require.Equal(t, "text/html", resp.Header.Get("Content-Type"))
		require.True(t, resp.Close)
		require.Equal(t, "Fri, 01 Dec 2023 08:00:00 GMT", resp.Header.Get("Date"))
		require.Equal(t, index, body)
	})

	t.Run("bigger than chunk", func(t *testing.T) {
		resp, body := parse(t, serve(t, r, method.GET, "/data/big.bin"), method.GET)
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		require.Equal(t, big, body)
	})

	t.Run("not found", func(t *testing.T) {
		for _, target := range []string{"/missing.txt", "/subdir", "/../index.html", "/data/../../notes.txt"} {
			resp, body := parse(t, serve(t, r, method.GET, target), method.GET)
			require.Equal(t, 404, resp.StatusCode, target)
			require.Equal(t, int64(len("404 Not Found")), resp.ContentLength, target)
			require.Equal(t, "text/plain", resp.Header.Get("Content-Type"), target)
			require.Equal(t, "404 Not Found", body, target)
		}
	})
}

func TestHead(t *testing.T) {
	r := newRouter(newFS(t, map[string]string{"notes.txt": "hello"}))

	for _, target := range []string{"/notes.txt", "/missing"} {
		get := serve(t, r, method.GET, target)
		head := serve(t, r, method.HEAD, target)

		headersEnd := strings.Index(get, "\r\n\r\n") + 4
		require.Equal(t, get[:headersEnd], head, "HEAD must send exactly the headers of GET")
	}

	t.Run("unreadable file", func(t *testing.T) {
		r := newRouter(lockedFS{newFS(t, map[string]string{"secret.txt": "pin"})})
		get := serve(t, r, method.GET, "/secret.txt")
		head := serve(t, r, method.HEAD, "/secret.txt")

		headersEnd := strings.Index(get, "\r\n\r\n") + 4
		require.Equal(t, get[:headersEnd], head)

		resp, _ := parse(t, head, method.HEAD)
		require.Equal(t, 404, resp.StatusCode)
		require.Equal(t, int64(len("404 Not Found")), resp.ContentLength)
	})

	resp, body := parse(t, serve(t, r, method.HEAD, "/notes.txt"), method.HEAD)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, int64(5), resp.ContentLength)
	require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	require.Empty(t, body)
}

func TestDelete(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		fs := newFS(t, map[string]string{"victim.txt": "bye"})
		r := newRouter(fs)

		resp, body := parse(t, serve(t, r, method.DELETE, "/victim.txt"), method.DELETE)
		require.Equal(t, 200, resp.StatusCode)
		require.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		require.Equal(t, "200 OK", body)
		_, err := fs.Stat("victim.txt")
		require.Error(t, err)

		resp, _ = parse(t, serve(t, r, method.GET, "/victim.txt"), method.GET)
		require.Equal(t, 404, resp.StatusCode)
	})

	t.Run("missing", func(t *testing.T) {
		fs := newFS(t, map[string]string{"keep.txt": "stay"})
		r := newRouter(fs)

		for _, target := range []string{"/missing", "/subdir", "/../keep.txt"} {
			resp, body := parse(t, serve(t, r, method.DELETE, target), method.DELETE)
			require.Equal(t, 404, resp.StatusCode, target)
			require.Equal(t, "404 Not Found", body, target)
		}

		_, err := fs.Stat("keep.txt")
		require.NoError(t, err)
		_, err = fs.Stat("subdir")
		require.NoError(t, err)
	})

	t.Run("removal failed", func(t *testing.T) {
		fs := newFS(t, map[string]string{"locked.txt": "no"})
		r := newRouter(stubbornFS{fs})

		resp, body := parse(t, serve(t, r, method.DELETE, "/locked.txt"), method.DELETE)
		require.Equal(t, 202, resp.StatusCode)
		require.Equal(t, int64(len("202 Accepted")), resp.ContentLength)
		require.Equal(t, "202 Accepted", body)
		_, err := fs.Stat("locked.txt")
		require.NoError(t, err)
	})
}

func TestUnsupported(t *testing.T) {
	r := newRouter(newFS(t, map[string]string{"index.html": "x"}))
	resp, err := r.Route(http1.Request{Method: method.Unknown, Token: "POST", Target: "/"})
	require.ErrorIs(t, err, ErrMethodNotSupported)
	require.Nil(t, resp)
}
