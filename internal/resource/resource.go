// Package resource resolves request targets into files under the resource root. Existence and
// size of a file are queried on every call, nothing is cached.
package resource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/indigo-web/filehost/http/mime"
)

var (
	ErrForbiddenPath = errors.New("target escapes the resource root")
	ErrNotFound      = errors.New("resource not found")
)

// Resource describes a regular file at the moment it was looked up.
type Resource struct {
	Path string
	Size int64
	MIME mime.MIME
}

// File is an opened resource. Offsets are passed explicitly, so a partially sent chunk can be
// re-read from the exact byte it stopped at.
type File interface {
	io.ReaderAt
	io.Closer
}

type Root struct {
	fs    billy.Filesystem
	index string
}

// New returns a root over the passed filesystem. The index names the file served for "/".
func New(fs billy.Filesystem, index string) *Root {
	return &Root{
		fs:    fs,
		index: index,
	}
}

// Dir returns a root over a directory on the disk.
func Dir(path, index string) *Root {
	return New(osfs.New(path), index)
}

// Resolve maps the request target onto a path inside the root. Targets with parent
// directory segments are rejected, symlinks are resolved without leaving the root.
func (r *Root) Resolve(target string) (string, error) {
	if target == "/" {
		target += r.index
	}

	if hasDotDot(target) {
		return "", ErrForbiddenPath
	}

	path, err := securejoin.SecureJoinVFS("/", target, r.fs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", target, err)
	}

	return path, nil
}

// Stat looks the resource up. Directories and anything that can't be stat'ed are reported
// as ErrNotFound.
func (r *Root) Stat(path string) (Resource, error) {
	info, err := r.fs.Stat(path)
	return describe(path, info, err)
}

// Open opens the resource for reading and stats it through the opened handle, so the size
// belongs to the very file being read. Filesystems whose files can't be stat'ed fall back to
// a stat by path right after opening.
func (r *Root) Open(path string) (File, Resource, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, Resource{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var info os.FileInfo
	if s, ok := f.(statter); ok {
		info, err = s.Stat()
	} else {
		info, err = r.fs.Stat(path)
	}

	res, err := describe(path, info, err)
	if err != nil {
		_ = f.Close()
		return nil, Resource{}, err
	}

	return f, res, nil
}

// Remove deletes the resource.
func (r *Root) Remove(path string) error {
	return r.fs.Remove(path)
}

type statter interface {
	Stat() (os.FileInfo, error)
}

func describe(path string, info os.FileInfo, err error) (Resource, error) {
	if err != nil {
		return Resource{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if info.IsDir() {
		return Resource{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	return Resource{
		Path: path,
		Size: info.Size(),
		MIME: mime.ByName(path),
	}, nil
}

func hasDotDot(target string) bool {
	if !strings.Contains(target, "..") {
		return false
	}

	for _, segment := range strings.Split(target, "/") {
		if segment == ".." {
			return true
		}
	}

	return false
}
