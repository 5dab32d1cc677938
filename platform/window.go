// Package platform defines the window contract the runner drives. Concrete
// backends live in sub-packages.
package platform

import (
	"errors"
	"time"

	"github.com/GoCodeAlone/doodle/events"
)

// ErrWindowClosed is returned by operations on a window that was closed.
var ErrWindowClosed = errors.New("window closed")

// Props are the creation parameters for a window.
type Props struct {
	Title  string
	Width  int
	Height int
}

// FrameStats is handed to Present once per frame.
type FrameStats struct {
	Index   uint64
	FPS     float64
	Elapsed time.Duration
	State   string
}

// Window is a platform surface. All methods are called from the frame loop
// goroutine except Close, which the runner calls exactly once.
type Window interface {
	Title() string
	Width() int
	Height() int

	// PollEvents drains the events that arrived since the last call.
	PollEvents() []events.Event

	// Present makes the frame visible.
	Present(stats FrameStats) error

	Close() error
}

// Opener creates a window. The runner calls it once per CreateApp.
type Opener func(props Props) (Window, error)
