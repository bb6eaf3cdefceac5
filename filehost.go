//go:build linux

package filehost

import (
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/indigo-web/filehost/config"
	"github.com/indigo-web/filehost/internal/resource"
	"github.com/indigo-web/filehost/internal/server"
	"github.com/indigo-web/filehost/router"
	"github.com/sirupsen/logrus"
)

// App serves the files of a single directory over plain HTTP/1.1, one request per connection.
type App struct {
	cfg   *config.Config
	log   *logrus.Logger
	fs    billy.Filesystem
	hooks hooks

	mu      sync.Mutex
	srv     *server.Server
	stopped bool
	addr    string
}

// New returns a new App instance. A nil config is replaced by the default one.
func New(cfg *config.Config) *App {
	return &App{
		cfg: config.Fill(cfg),
		log: logrus.New(),
	}
}

// Tune replaces the config. Zero-valued fields fall back to defaults.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = config.Fill(cfg)
	return a
}

// Logger replaces the default logger.
func (a *App) Logger(log *logrus.Logger) *App {
	a.log = log
	return a
}

// FS makes the app serve the filesystem instead of the root directory from the config.
func (a *App) FS(fs billy.Filesystem) *App {
	a.fs = fs
	return a
}

// NotifyOnStart calls the callback as soon as the listener is bound. The connections arriving
// since then are queued until the event loop picks them up.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback once the event loop has exited and all the connections are
// closed.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Addr returns the address the app is listening on. Empty until the app is started.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addr
}

// Serve runs the event loop on the calling goroutine until Stop is called. Only the errors
// preventing the app from serving at all are returned: failures of particular connections
// are logged instead.
func (a *App) Serve() error {
	root := a.root()
	srv, err := server.New(a.cfg, router.New(root, a.cfg.Send.ChunkSize), a.log)
	if err != nil {
		a.log.WithError(err).Error("cannot start the server")
		return err
	}

	addr, err := srv.Addr()
	if err != nil {
		_ = srv.Close()
		return err
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return srv.Close()
	}
	a.srv = srv
	a.addr = addr.String()
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"addr": addr.String(),
		"root": a.cfg.FS.Root,
	}).Info("listening")
	callIfNotNil(a.hooks.OnStart)

	err = srv.Run()
	if err != nil {
		a.log.WithError(err).Error("event loop failed")
	}

	a.mu.Lock()
	a.srv = nil
	a.mu.Unlock()

	if cerr := srv.Close(); cerr != nil {
		a.log.WithError(cerr).Warn("cannot release the server resources")
	}

	a.log.Info("shutdown")
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop makes Serve return. Connections being served at the moment are dropped. The call
// isn't blocking, so the app might still be running after it returns. Calling Stop before
// Serve makes Serve return immediately.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.srv != nil {
		a.srv.Stop()
	}
}

func (a *App) root() *resource.Root {
	if a.fs != nil {
		return resource.New(a.fs, a.cfg.FS.Index)
	}

	return resource.Dir(a.cfg.FS.Root, a.cfg.FS.Index)
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
