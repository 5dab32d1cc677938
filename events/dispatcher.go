package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Static errors for events package
var (
	ErrEventCannotBeNil        = errors.New("event cannot be nil")
	ErrListenerCannotBeNil     = errors.New("listener cannot be nil")
	ErrListenerAlreadyExists   = errors.New("listener already registered")
	ErrListenerIDCannotBeEmpty = errors.New("listener id cannot be empty")
)

type registration struct {
	listener Listener
	types    map[Type]bool
	seq      uint64
}

// Metrics counts dispatched events.
type Metrics struct {
	Dispatched   int64
	Handled      int64
	Failed       int64
	EventsByType map[Type]int64
}

// Dispatcher delivers events synchronously on the caller's goroutine.
// Registration is safe from any goroutine; Dispatch is expected to be called
// from the frame loop.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []*registration
	seq       uint64
	metrics   Metrics
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		metrics: Metrics{EventsByType: make(map[Type]int64)},
	}
}

// Register adds a listener. Listeners with equal priority are called in
// registration order.
func (d *Dispatcher) Register(l Listener) error {
	if l == nil {
		return ErrListenerCannotBeNil
	}
	if l.ID() == "" {
		return ErrListenerIDCannotBeEmpty
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, reg := range d.listeners {
		if reg.listener.ID() == l.ID() {
			return fmt.Errorf("%w: %s", ErrListenerAlreadyExists, l.ID())
		}
	}

	types := make(map[Type]bool)
	for _, t := range l.EventTypes() {
		types[t] = true
	}

	d.seq++
	d.listeners = append(d.listeners, &registration{listener: l, types: types, seq: d.seq})
	slices.SortStableFunc(d.listeners, func(a, b *registration) int {
		if a.listener.Priority() != b.listener.Priority() {
			return b.listener.Priority() - a.listener.Priority()
		}
		return int(a.seq) - int(b.seq)
	})
	return nil
}

// Unregister removes a listener by ID. Unknown IDs are ignored.
func (d *Dispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = slices.DeleteFunc(d.listeners, func(reg *registration) bool {
		return reg.listener.ID() == id
	})
}

// Listeners returns the registered listeners in call order.
func (d *Dispatcher) Listeners() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Listener, 0, len(d.listeners))
	for _, reg := range d.listeners {
		out = append(out, reg.listener)
	}
	return out
}

// Dispatch delivers ev to interested listeners until one handles it. It
// reports whether the event was handled. A listener error stops delivery and
// is returned wrapped with the listener ID.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (bool, error) {
	if ev == nil {
		return false, ErrEventCannotBeNil
	}

	d.mu.RLock()
	regs := slices.Clone(d.listeners)
	d.mu.RUnlock()

	d.count(func(m *Metrics) {
		m.Dispatched++
		m.EventsByType[ev.Type()]++
	})

	for _, reg := range regs {
		if len(reg.types) > 0 && !reg.types[ev.Type()] {
			continue
		}
		handled, err := reg.listener.OnEvent(ctx, ev)
		if err != nil {
			d.count(func(m *Metrics) { m.Failed++ })
			return false, fmt.Errorf("listener %s: %w", reg.listener.ID(), err)
		}
		if handled {
			d.count(func(m *Metrics) { m.Handled++ })
			return true, nil
		}
	}
	return false, nil
}

// Metrics returns a copy of the dispatch counters.
func (d *Dispatcher) Metrics() Metrics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m := d.metrics
	m.EventsByType = make(map[Type]int64, len(d.metrics.EventsByType))
	for k, v := range d.metrics.EventsByType {
		m.EventsByType[k] = v
	}
	return m
}

func (d *Dispatcher) count(fn func(*Metrics)) {
	d.mu.Lock()
	fn(&d.metrics)
	d.mu.Unlock()
}

// FuncListener adapts a function to the Listener interface.
type FuncListener struct {
	id       string
	priority int
	types    []Type
	handler  func(ctx context.Context, ev Event) (bool, error)
}

// NewFuncListener creates a listener that calls handler for the given types
// (all types when none are given).
func NewFuncListener(id string, priority int, handler func(ctx context.Context, ev Event) (bool, error), types ...Type) *FuncListener {
	return &FuncListener{id: id, priority: priority, types: types, handler: handler}
}

func (f *FuncListener) OnEvent(ctx context.Context, ev Event) (bool, error) {
	return f.handler(ctx, ev)
}

func (f *FuncListener) ID() string         { return f.id }
func (f *FuncListener) EventTypes() []Type { return f.types }
func (f *FuncListener) Priority() int      { return f.priority }
