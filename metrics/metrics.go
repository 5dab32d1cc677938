// Package metrics exports frame and lifecycle metrics to Prometheus. The
// Collector is both a subsystem, sampling frame timing during layout, and an
// observer of runner events.
package metrics

import (
	"context"
	"net/http"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/doodle"
)

const namespace = "doodle"

// Collector is a doodle subsystem and observer.
type Collector struct {
	registry *prometheus.Registry

	frames          prometheus.Counter
	frameDuration   prometheus.Histogram
	fps             prometheus.Gauge
	windowSize      *prometheus.GaugeVec
	state           prometheus.Gauge
	hookErrors      *prometheus.CounterVec
	lifecycleEvents *prometheus.CounterVec

	mu   sync.Mutex
	host doodle.Host
}

var (
	_ doodle.Subsystem     = (*Collector)(nil)
	_ doodle.Initializable = (*Collector)(nil)
	_ doodle.Layouter      = (*Collector)(nil)
	_ doodle.Ordered       = (*Collector)(nil)
	_ doodle.Observer      = (*Collector)(nil)
)

// New creates a collector registered with reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: reg,
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames started",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time between the starts of consecutive frames",
			Buckets:   []float64{0.001, 0.004, 0.008, 0.0167, 0.033, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frames_per_second",
			Help:      "Frame rate averaged over the last second",
		}),
		windowSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_size_pixels",
			Help:      "Current window size",
		}, []string{"dimension"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "application_state",
			Help:      "Application lifecycle state (0 uninitialized .. 4 deinitialized)",
		}),
		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hook_errors_total",
			Help:      "Hook and subsystem phase failures",
		}, []string{"hook"}),
		lifecycleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Runner events observed, by CloudEvents type",
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.frames,
		c.frameDuration,
		c.fps,
		c.windowSize,
		c.state,
		c.hookErrors,
		c.lifecycleEvents,
	)
	return c
}

func (c *Collector) Name() string { return "metrics" }

// ExecutionOrder places the collector before other subsystems so frame
// timing is sampled first.
func (c *Collector) ExecutionOrder() int { return -100 }

// ObserverID implements doodle.Observer.
func (c *Collector) ObserverID() string { return "metrics" }

// Init subscribes to runner events when the host is observable. From here
// on the state gauge is read from the host.
func (c *Collector) Init(_ context.Context, host doodle.Host) error {
	c.mu.Lock()
	c.host = host
	c.mu.Unlock()

	c.syncState()
	if subject, ok := host.(doodle.Subject); ok {
		return subject.RegisterObserver(c)
	}
	return nil
}

// Layout samples the timing of the frame that is starting.
func (c *Collector) Layout(_ context.Context, frame doodle.Frame) error {
	c.frames.Inc()
	if frame.Index > 1 {
		c.frameDuration.Observe(frame.Delta.Seconds())
	}
	c.fps.Set(frame.FPS)
	c.syncState()
	c.windowSize.WithLabelValues("width").Set(float64(frame.Width))
	c.windowSize.WithLabelValues("height").Set(float64(frame.Height))
	return nil
}

// OnEvent implements doodle.Observer.
func (c *Collector) OnEvent(_ context.Context, event cloudevents.Event) error {
	c.lifecycleEvents.WithLabelValues(event.Type()).Inc()

	switch event.Type() {
	case doodle.EventTypeApplicationInitialized:
		c.setState(doodle.StateInitialized)
	case doodle.EventTypeApplicationRunning:
		c.setState(doodle.StateRunning)
	case doodle.EventTypeApplicationTerminating:
		c.setState(doodle.StateTerminating)
	case doodle.EventTypeApplicationDeinitialized:
		c.setState(doodle.StateDeinitialized)
	case doodle.EventTypeHookFailed:
		var data struct {
			Hook string `json:"hook"`
		}
		if err := event.DataAs(&data); err != nil {
			return err
		}
		if data.Hook == "" {
			data.Hook = "unknown"
		}
		c.hookErrors.WithLabelValues(data.Hook).Inc()
	}
	return nil
}

// setState records a state change. With a host the gauge takes the host's
// current state; announced is used only when Init never ran.
func (c *Collector) setState(announced doodle.ApplicationState) {
	if !c.syncState() {
		c.state.Set(float64(announced))
	}
}

// syncState reads and publishes under one lock so a slow reader cannot
// overwrite a later state.
func (c *Collector) syncState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host == nil {
		return false
	}
	c.state.Set(float64(c.host.State()))
	return true
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
