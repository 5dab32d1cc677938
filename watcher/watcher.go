// Package watcher reports file system changes to the frame loop. fsnotify
// events are collected on a background goroutine and coalesced per path;
// handlers run during the update phase on the loop goroutine.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/doodle"
)

// ErrNotStarted is returned by Add before the subsystem was initialized.
var ErrNotStarted = errors.New("watcher not started")

// Change is a coalesced set of operations on one path since the last frame.
type Change struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Handler reacts to a change. It runs on the loop goroutine.
type Handler func(ctx context.Context, change Change) error

// Watcher is a doodle subsystem.
type Watcher struct {
	name     string
	paths    []string
	handlers []Handler
	logger   doodle.Logger

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	pending map[string]Change
	errs    []error
	done    chan struct{}
}

var (
	_ doodle.Subsystem     = (*Watcher)(nil)
	_ doodle.Initializable = (*Watcher)(nil)
	_ doodle.Updater       = (*Watcher)(nil)
	_ doodle.Stoppable     = (*Watcher)(nil)
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithName sets the subsystem name. The default is "watcher".
func WithName(name string) Option {
	return func(w *Watcher) { w.name = name }
}

// WithPaths adds files or directories to watch once the subsystem starts.
func WithPaths(paths ...string) Option {
	return func(w *Watcher) { w.paths = append(w.paths, paths...) }
}

// WithHandler adds a change handler.
func WithHandler(h Handler) Option {
	return func(w *Watcher) {
		if h != nil {
			w.handlers = append(w.handlers, h)
		}
	}
}

// New creates a watcher subsystem.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		name:    "watcher",
		pending: make(map[string]Change),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Name() string { return w.name }

// Init creates the fsnotify watcher and adds the configured paths.
func (w *Watcher) Init(_ context.Context, host doodle.Host) error {
	w.logger = host.Logger()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, p := range w.paths {
		if err := fs.Add(p); err != nil {
			_ = fs.Close()
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	w.mu.Lock()
	w.fs = fs
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.collect(fs, w.done)
	w.logger.Debug("Watching paths", "paths", w.paths)
	return nil
}

// Add starts watching another path.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fs == nil {
		return ErrNotStarted
	}
	if err := w.fs.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	return nil
}

// WatchList returns the paths currently watched.
func (w *Watcher) WatchList() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fs == nil {
		return nil
	}
	list := w.fs.WatchList()
	slices.Sort(list)
	return list
}

func (w *Watcher) collect(fs *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-fs.Events:
			if !ok {
				return
			}
			w.record(ev, time.Now())
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.errs = append(w.errs, err)
			w.mu.Unlock()
		}
	}
}

func (w *Watcher) record(ev fsnotify.Event, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.pending[ev.Name]
	c.Path = ev.Name
	c.Op |= ev.Op
	c.Time = at
	w.pending[ev.Name] = c
}

// Update hands pending changes to the handlers in path order. Handler errors
// are logged and do not fail the frame.
func (w *Watcher) Update(ctx context.Context, frame doodle.Frame) error {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]Change)
	errs := w.errs
	w.errs = nil
	w.mu.Unlock()

	for _, err := range errs {
		w.logger.Warn("File watcher error", "error", err)
	}

	for _, path := range slices.Sorted(maps.Keys(pending)) {
		change := pending[path]
		w.logger.Debug("File changed", "path", path, "op", change.Op.String(), "frame", frame.Index)
		for _, h := range w.handlers {
			if err := h(ctx, change); err != nil {
				w.logger.Error("File change handler failed", "path", path, "error", err)
			}
		}
	}
	return nil
}

// Stop closes the fsnotify watcher and waits for the collector to exit.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	fs, done := w.fs, w.done
	w.fs = nil
	w.mu.Unlock()
	if fs == nil {
		return nil
	}

	err := fs.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("watcher stop: %w", ctx.Err())
	}
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}
