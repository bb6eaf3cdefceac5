package router

import (
	"errors"
	"time"

	"github.com/indigo-web/filehost/http/method"
	"github.com/indigo-web/filehost/http/mime"
	"github.com/indigo-web/filehost/http/status"
	"github.com/indigo-web/filehost/internal/protocol/http1"
	"github.com/indigo-web/filehost/internal/resource"
)

// ErrMethodNotSupported is returned for any method except GET, HEAD and DELETE. No response
// is produced for those at all: the connection is simply closed.
var ErrMethodNotSupported = errors.New("request method is not supported")

// Router maps request targets onto the resource root and builds the response for each
// supported method.
type Router struct {
	root  *resource.Root
	chunk []byte
	now   func() time.Time
}

// New returns a router serving the root. All the file bodies are streamed through the single
// chunk buffer of chunkSize bytes, which is fine as long as responses are flushed one at a time.
func New(root *resource.Root, chunkSize int) *Router {
	return &Router{
		root:  root,
		chunk: make([]byte, chunkSize),
		now:   time.Now,
	}
}

// Route builds the response for the request. Targets that can't be resolved are answered as
// not found.
func (r *Router) Route(req http1.Request) (*http1.Response, error) {
	switch req.Method {
	case method.GET:
		return r.get(req.Target), nil
	case method.HEAD:
		return r.head(req.Target), nil
	case method.DELETE:
		return r.delete(req.Target), nil
	default:
		return nil, ErrMethodNotSupported
	}
}

func (r *Router) get(target string) *http1.Response {
	file, res, err := r.open(target)
	if err != nil {
		return http1.NewLiteral(status.NotFound, r.now())
	}

	return http1.NewResponse(status.OK, res.Size, res.MIME, r.now()).Stream(file, r.chunk)
}

// head decides exactly the way get does, so a file that can't be opened is not found for both.
func (r *Router) head(target string) *http1.Response {
	file, res, err := r.open(target)
	if err != nil {
		return http1.NewResponse(status.NotFound, int64(len(status.Line(status.NotFound))), mime.Plain, r.now())
	}

	_ = file.Close()

	return http1.NewResponse(status.OK, res.Size, res.MIME, r.now())
}

// delete answers 200 if the file is removed, 202 if it exists but couldn't be removed and
// 404 if there is no such file.
func (r *Router) delete(target string) *http1.Response {
	res, err := r.stat(target)
	if err != nil {
		return http1.NewLiteral(status.NotFound, r.now())
	}

	if err = r.root.Remove(res.Path); err != nil {
		return http1.NewLiteral(status.Accepted, r.now())
	}

	return http1.NewLiteral(status.OK, r.now())
}

func (r *Router) open(target string) (resource.File, resource.Resource, error) {
	path, err := r.root.Resolve(target)
	if err != nil {
		return nil, resource.Resource{}, err
	}

	return r.root.Open(path)
}

func (r *Router) stat(target string) (resource.Resource, error) {
	path, err := r.root.Resolve(target)
	if err != nil {
		return resource.Resource{}, err
	}

	return r.root.Stat(path)
}
