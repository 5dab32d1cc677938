package doodle

import (
	"context"
	"fmt"
	"slices"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// RegisterObserver adds an observer to receive runner events. If eventTypes
// is empty, the observer receives all events. Registering an ID again
// replaces the earlier registration.
func (r *Runner) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	eventTypeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}
	reg := &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	r.observerMutex.Lock()
	defer r.observerMutex.Unlock()

	if i := r.observerIndex(observer.ObserverID()); i >= 0 {
		r.observers[i] = reg
	} else {
		r.observers = append(r.observers, reg)
	}

	r.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. Unknown observers are ignored.
func (r *Runner) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	r.observerMutex.Lock()
	defer r.observerMutex.Unlock()

	if i := r.observerIndex(observer.ObserverID()); i >= 0 {
		r.observers = slices.Delete(r.observers, i, i+1)
		r.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

func (r *Runner) observerIndex(id string) int {
	return slices.IndexFunc(r.observers, func(reg *observerRegistration) bool {
		return reg.observer.ObserverID() == id
	})
}

// NotifyObservers validates event and delivers it to interested observers in
// registration order. Delivery happens on one goroutine per observer unless
// the runner uses synchronous observers or ctx carries
// WithSynchronousNotification. Observer errors and panics are logged only.
func (r *Runner) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		r.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	r.observerMutex.RLock()
	regs := slices.Clone(r.observers)
	r.observerMutex.RUnlock()

	synchronous := r.syncObservers || IsSynchronousNotification(ctx)
	deliveryCtx := context.WithoutCancel(ctx)

	for _, reg := range regs {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[event.Type()] {
			continue
		}
		if synchronous {
			r.deliver(deliveryCtx, reg.observer, event)
			continue
		}
		go r.deliver(deliveryCtx, reg.observer, event)
	}
	return nil
}

func (r *Runner) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", fmt.Sprint(rec))
		}
	}()

	if err := observer.OnEvent(ctx, event); err != nil {
		r.logger.Warn("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns information about currently registered observers.
func (r *Runner) GetObservers() []ObserverInfo {
	r.observerMutex.RLock()
	defer r.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(r.observers))
	for _, reg := range r.observers {
		eventTypes := make([]string, 0, len(reg.eventTypes))
		for eventType := range reg.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		slices.Sort(eventTypes)

		info = append(info, ObserverInfo{
			ID:           reg.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: reg.registeredAt,
		})
	}
	return info
}

// emit builds a runner CloudEvent and notifies observers. It is a no-op
// when nobody is listening.
func (r *Runner) emit(ctx context.Context, eventType string, data map[string]any) {
	r.observerMutex.RLock()
	n := len(r.observers)
	r.observerMutex.RUnlock()
	if n == 0 {
		return
	}

	event := NewCloudEvent(eventType, EventSource, data, nil)
	if err := r.NotifyObservers(ctx, event); err != nil {
		r.logger.Warn("Failed to notify observers", "event", eventType, "error", err)
	}
}
