// Package doodle drives a windowed real-time application through its
// lifecycle: window creation, initialization, a phased frame loop and
// teardown. Lifecycle changes are published to observers as CloudEvents.
package doodle

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// runner events. Events use the CloudEvents specification.
type Observer interface {
	// OnEvent is called when an event occurs that the observer is interested in.
	// Errors are logged by the runner and never affect the lifecycle.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject defines the interface for objects that can be observed.
type Subject interface {
	// RegisterObserver adds an observer to receive notifications.
	// If eventTypes is empty, the observer receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. It is idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all interested observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about currently registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by the Runner, in reverse domain notation.
const (
	// Application lifecycle events
	EventTypeApplicationCreated       = "com.doodle.application.created"
	EventTypeApplicationInitialized   = "com.doodle.application.initialized"
	EventTypeApplicationRunning       = "com.doodle.application.running"
	EventTypeApplicationTerminating   = "com.doodle.application.terminating"
	EventTypeApplicationDeinitialized = "com.doodle.application.deinitialized"
	EventTypeApplicationFailed        = "com.doodle.application.failed"

	// Loop events
	EventTypeHookFailed           = "com.doodle.hook.failed"
	EventTypeFrameCompleted       = "com.doodle.frame.completed"
	EventTypeTerminateRequested   = "com.doodle.runner.terminate_requested"
	EventTypeWindowCloseRequested = "com.doodle.window.close_requested"
	EventTypeWindowResized        = "com.doodle.window.resized"
)

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that calls handler for each event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
