// Package headless provides an in-memory window for tests and batch runs.
package headless

import (
	"sync"

	"github.com/GoCodeAlone/doodle/events"
	"github.com/GoCodeAlone/doodle/platform"
)

// Option configures a headless window.
type Option func(*Window)

// CloseAfter queues a close request once n frames have been presented.
func CloseAfter(n uint64) Option {
	return func(w *Window) { w.closeAfter = n }
}

// Window is a platform.Window with no visible surface. Events are injected
// with Push.
type Window struct {
	mu         sync.Mutex
	props      platform.Props
	pending    []events.Event
	presented  []platform.FrameStats
	closeAfter uint64
	closed     bool
}

var _ platform.Window = (*Window)(nil)

// New creates a headless window.
func New(props platform.Props, opts ...Option) *Window {
	w := &Window{props: props}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Opener returns a platform.Opener producing headless windows. Every window
// it opens is passed to onOpen when it is non-nil.
func Opener(onOpen func(*Window), opts ...Option) platform.Opener {
	return func(props platform.Props) (platform.Window, error) {
		w := New(props, opts...)
		if onOpen != nil {
			onOpen(w)
		}
		return w, nil
	}
}

func (w *Window) Title() string { return w.props.Title }

func (w *Window) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.props.Width
}

func (w *Window) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.props.Height
}

// Push queues events for the next PollEvents. A WindowResize also updates the
// reported size.
func (w *Window) Push(evs ...events.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ev := range evs {
		if r, ok := ev.(events.WindowResize); ok {
			w.props.Width, w.props.Height = r.Width, r.Height
		}
		w.pending = append(w.pending, ev)
	}
}

func (w *Window) PollEvents() []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	evs := w.pending
	w.pending = nil
	return evs
}

func (w *Window) Present(stats platform.FrameStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return platform.ErrWindowClosed
	}
	w.presented = append(w.presented, stats)
	if w.closeAfter > 0 && uint64(len(w.presented)) == w.closeAfter {
		w.pending = append(w.pending, events.WindowClose{})
	}
	return nil
}

func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return platform.ErrWindowClosed
	}
	w.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Presented returns the stats of every presented frame.
func (w *Window) Presented() []platform.FrameStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]platform.FrameStats, len(w.presented))
	copy(out, w.presented)
	return out
}
