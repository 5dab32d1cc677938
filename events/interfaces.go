// Package events defines window and input events and a synchronous,
// priority-ordered dispatcher for them.
package events

import (
	"context"
	"fmt"
)

// Type identifies the kind of an event.
type Type string

const (
	TypeWindowClose   Type = "window.close"
	TypeWindowResize  Type = "window.resize"
	TypeWindowMove    Type = "window.move"
	TypeWindowRefresh Type = "window.refresh"
	TypeKeyPressed    Type = "key.pressed"
	TypeKeyReleased   Type = "key.released"
)

// Category groups event types for coarse filtering.
type Category string

const (
	CategoryApplication Category = "application"
	CategoryInput       Category = "input"
)

// Event is implemented by every value a window reports from PollEvents.
type Event interface {
	Type() Type
	Category() Category
}

// Listener receives dispatched events. Listeners are called in descending
// Priority order; a listener returning handled=true stops propagation.
type Listener interface {
	// OnEvent handles the event. Returning an error stops dispatching.
	OnEvent(ctx context.Context, ev Event) (handled bool, err error)

	// ID returns the unique identifier for this listener
	ID() string

	// EventTypes returns the types this listener wants. Empty means all.
	EventTypes() []Type

	// Priority returns the priority of this listener (higher = called first)
	Priority() int
}

// WindowClose is reported when the user asks the window to close.
type WindowClose struct{}

func (WindowClose) Type() Type         { return TypeWindowClose }
func (WindowClose) Category() Category { return CategoryApplication }
func (WindowClose) String() string     { return "WindowCloseEvent" }

// WindowResize carries the new window size.
type WindowResize struct {
	Width  int
	Height int
}

func (WindowResize) Type() Type         { return TypeWindowResize }
func (WindowResize) Category() Category { return CategoryApplication }

func (e WindowResize) String() string {
	return fmt.Sprintf("WindowResizeEvent: %d, %d", e.Width, e.Height)
}

// WindowMove carries the new window position.
type WindowMove struct {
	X int
	Y int
}

func (WindowMove) Type() Type         { return TypeWindowMove }
func (WindowMove) Category() Category { return CategoryApplication }

func (e WindowMove) String() string {
	return fmt.Sprintf("WindowMoveEvent: %d, %d", e.X, e.Y)
}

// WindowRefresh asks for the window contents to be redrawn.
type WindowRefresh struct{}

func (WindowRefresh) Type() Type         { return TypeWindowRefresh }
func (WindowRefresh) Category() Category { return CategoryApplication }
func (WindowRefresh) String() string     { return "WindowRefreshEvent" }

// KeyPressed reports a key press. Repeat counts auto-repeats of a held key.
type KeyPressed struct {
	Key    string
	Repeat int
}

func (KeyPressed) Type() Type         { return TypeKeyPressed }
func (KeyPressed) Category() Category { return CategoryInput }

func (e KeyPressed) String() string {
	return fmt.Sprintf("KeyPressedEvent: %s (%d repeats)", e.Key, e.Repeat)
}

// KeyReleased reports a key release.
type KeyReleased struct {
	Key string
}

func (KeyReleased) Type() Type         { return TypeKeyReleased }
func (KeyReleased) Category() Category { return CategoryInput }

func (e KeyReleased) String() string {
	return fmt.Sprintf("KeyReleasedEvent: %s", e.Key)
}
