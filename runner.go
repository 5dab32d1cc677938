package doodle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/GoCodeAlone/doodle/events"
	"github.com/GoCodeAlone/doodle/platform"
	"github.com/GoCodeAlone/doodle/platform/headless"
)

// Runner owns one application and its window, and drives them through the
// lifecycle. A Runner is used once: CreateApp, then Run. Create one per
// process in production; tests may create as many as they like.
type Runner struct {
	logger      Logger
	opener      platform.Opener
	dispatcher  *events.Dispatcher
	clock       frameClock
	limiter     *rate.Limiter
	targetFPS   float64
	maxFrames   uint64
	diagnostics bool
	policy      HookErrorPolicy

	observers     []*observerRegistration
	observerMutex sync.RWMutex
	syncObservers bool

	mu         sync.Mutex
	window     platform.Window
	app        Application
	title      string
	created    bool
	subsystems []Subsystem

	// Loop goroutine only.
	started     []Subsystem
	layoutSteps []phaseStep
	updateSteps []phaseStep
	renderSteps []phaseStep
	released    bool

	state      atomic.Int32
	terminate  atomic.Bool
	ran        atomic.Bool
	frameIndex atomic.Uint64
	completed  atomic.Uint64
	fpsBits    atomic.Uint64
	elapsed    atomic.Int64
	width      atomic.Int64
	height     atomic.Int64
}

var _ Host = (*Runner)(nil)
var _ Subject = (*Runner)(nil)

// Stats is a point-in-time snapshot of the runner, safe to take from any
// goroutine.
type Stats struct {
	Title           string           `json:"title"`
	State           ApplicationState `json:"state"`
	FrameIndex      uint64           `json:"frameIndex"`
	FramesCompleted uint64           `json:"framesCompleted"`
	FPS             float64          `json:"fps"`
	TargetFPS       float64          `json:"targetFps"`
	Elapsed         time.Duration    `json:"elapsed"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
}

// NewRunner creates a runner. Without WithWindowOpener, windows are headless.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		logger:     nopLogger{},
		opener:     headless.Opener(nil),
		dispatcher: events.NewDispatcher(),
		clock:      newFrameClock(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterSubsystem adds a subsystem. Subsystems can only be added before Run.
func (r *Runner) RegisterSubsystem(s Subsystem) error {
	if s == nil {
		return ErrSubsystemNil
	}
	if r.ran.Load() {
		return &LifecycleOrderError{
			Op:     "RegisterSubsystem",
			From:   r.State(),
			To:     r.State(),
			Detail: "subsystems must be registered before Run",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subsystems {
		if existing.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrSubsystemAlreadyExists, s.Name())
		}
	}
	r.subsystems = append(r.subsystems, s)
	r.logger.Debug("Registered subsystem", "name", s.Name())
	return nil
}

// Subsystems returns the registered subsystems in registration order.
func (r *Runner) Subsystems() []Subsystem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subsystem, len(r.subsystems))
	copy(out, r.subsystems)
	return out
}

// CreateApp validates cfg, opens the window and constructs the application
// with factory. It does not call Initialize. The runner accepts exactly one
// application; a failed CreateApp may be retried.
func (r *Runner) CreateApp(factory Factory, cfg WindowConfig) (Application, error) {
	app, err := r.createApp(factory, cfg)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Window created", "title", cfg.Title(), "width", cfg.Width(), "height", cfg.Height())
	r.emit(context.Background(), EventTypeApplicationCreated, map[string]any{
		"title":  cfg.Title(),
		"width":  cfg.Width(),
		"height": cfg.Height(),
	})
	return app, nil
}

func (r *Runner) createApp(factory Factory, cfg WindowConfig) (Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.created {
		return nil, &LifecycleOrderError{
			Op:     "CreateApp",
			From:   r.State(),
			To:     StateUninitialized,
			Detail: "an application was already created by this runner",
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, ErrFactoryNil)
	}

	window, err := r.opener(cfg.props())
	if err != nil {
		return nil, fmt.Errorf("%w: open window %q: %w", ErrStartup, cfg.Title(), err)
	}
	if window == nil {
		return nil, fmt.Errorf("%w: open window %q: opener returned nil", ErrStartup, cfg.Title())
	}

	app, err := buildApplication(factory)
	if err == nil && app == nil {
		err = ErrApplicationNil
	}
	if err != nil {
		if cerr := window.Close(); cerr != nil {
			r.logger.Error("Failed to release window", "error", cerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	r.window = window
	r.app = app
	r.title = cfg.Title()
	r.created = true
	r.width.Store(int64(window.Width()))
	r.height.Store(int64(window.Height()))
	return app, nil
}

func buildApplication(factory Factory) (app Application, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: factory: %v", ErrHookPanic, rec)
		}
	}()
	return factory(), nil
}

// Terminate asks the loop to stop after the frame in progress. It is
// idempotent and safe to call from any goroutine, including before Run.
func (r *Runner) Terminate() {
	if r.terminate.CompareAndSwap(false, true) {
		r.logger.Info("Termination requested")
		r.emit(context.Background(), EventTypeTerminateRequested, map[string]any{
			"frame": r.frameIndex.Load(),
		})
	}
}

// TerminationRequested reports whether the loop has been asked to stop.
func (r *Runner) TerminationRequested() bool {
	return r.terminate.Load()
}

// State returns the application state.
func (r *Runner) State() ApplicationState {
	return ApplicationState(r.state.Load())
}

// Window returns the window created by CreateApp, or nil.
func (r *Runner) Window() platform.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window
}

// Application returns the application created by CreateApp, or nil.
func (r *Runner) Application() Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app
}

// FrameIndex returns the index of the most recently started frame.
func (r *Runner) FrameIndex() uint64 {
	return r.frameIndex.Load()
}

// FramesCompleted returns how many frames ran every phase to the end.
func (r *Runner) FramesCompleted() uint64 {
	return r.completed.Load()
}

// Events returns the dispatcher window events are delivered through.
func (r *Runner) Events() *events.Dispatcher {
	return r.dispatcher
}

// Logger returns the runner logger.
func (r *Runner) Logger() Logger {
	return r.logger
}

// Stats returns a snapshot of the runner.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	title := r.title
	r.mu.Unlock()

	return Stats{
		Title:           title,
		State:           r.State(),
		FrameIndex:      r.frameIndex.Load(),
		FramesCompleted: r.completed.Load(),
		FPS:             math.Float64frombits(r.fpsBits.Load()),
		TargetFPS:       r.targetFPS,
		Elapsed:         time.Duration(r.elapsed.Load()),
		Width:           int(r.width.Load()),
		Height:          int(r.height.Load()),
	}
}
