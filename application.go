package doodle

import (
	"context"
	"time"
)

// Frame is the per-frame context handed to phase hooks. It is rebuilt by the
// Runner for every frame and never persisted.
type Frame struct {
	// Index is 1 for the first frame and increases by one per frame.
	Index uint64

	// Delta is the time since the previous frame started (zero on frame 1).
	Delta time.Duration

	// Elapsed is the time since the loop started.
	Elapsed time.Duration

	// FPS is the frame rate measured over the last full second.
	FPS float64

	// Width and Height are the window size at the start of the frame.
	Width  int
	Height int
}

// Hook names a lifecycle extension point.
type Hook string

const (
	HookInitialize   Hook = "Initialize"
	HookDeinitialize Hook = "Deinitialize"
	HookBeforeLayout Hook = "BeforeLayout"
	HookAfterLayout  Hook = "AfterLayout"
	HookBeforeUpdate Hook = "BeforeUpdate"
	HookAfterUpdate  Hook = "AfterUpdate"
	HookBeforeRender Hook = "BeforeRender"
	HookAfterRender  Hook = "AfterRender"

	// Subsystem phase bodies and event handling are reported with these names.
	HookLayout  Hook = "Layout"
	HookUpdate  Hook = "Update"
	HookRender  Hook = "Render"
	HookPresent Hook = "Present"
	HookEvent   Hook = "Event"
	HookResize  Hook = "OnResize"
)

// Application is the capability set a Runner drives. Every hook may return
// an error; see Runner.Run for how each one is handled.
//
// Implementations usually embed BaseApplication and override the hooks they
// need. An override never has to call the embedded method: the Runner owns
// all lifecycle bookkeeping (state transitions, frame counting, timing) and
// performs it around each call.
type Application interface {
	// Initialize is called exactly once, after the window exists and
	// before the first frame.
	Initialize(ctx context.Context) error

	// Deinitialize is called exactly once, after the loop has exited and
	// before the window is released. It runs even when the loop failed.
	Deinitialize(ctx context.Context) error

	BeforeLayout(ctx context.Context, frame Frame) error
	AfterLayout(ctx context.Context, frame Frame) error
	BeforeUpdate(ctx context.Context, frame Frame) error
	AfterUpdate(ctx context.Context, frame Frame) error
	BeforeRender(ctx context.Context, frame Frame) error
	AfterRender(ctx context.Context, frame Frame) error
}

// ResizeHandler is implemented by applications that want window resize
// notifications. OnResize runs on the loop goroutine while events are polled,
// before the frame's layout phase.
type ResizeHandler interface {
	OnResize(ctx context.Context, width, height int) error
}

// Factory constructs the application. CreateApp invokes it exactly once.
type Factory func() Application

// BaseApplication provides no-op implementations of every hook.
type BaseApplication struct{}

func (BaseApplication) Initialize(context.Context) error          { return nil }
func (BaseApplication) Deinitialize(context.Context) error        { return nil }
func (BaseApplication) BeforeLayout(context.Context, Frame) error { return nil }
func (BaseApplication) AfterLayout(context.Context, Frame) error  { return nil }
func (BaseApplication) BeforeUpdate(context.Context, Frame) error { return nil }
func (BaseApplication) AfterUpdate(context.Context, Frame) error  { return nil }
func (BaseApplication) BeforeRender(context.Context, Frame) error { return nil }
func (BaseApplication) AfterRender(context.Context, Frame) error  { return nil }

// LifecycleFunc is the signature of Initialize and Deinitialize entries in AppFuncs.
type LifecycleFunc func(ctx context.Context) error

// PhaseFunc is the signature of phase hook entries in AppFuncs.
type PhaseFunc func(ctx context.Context, frame Frame) error

// AppFuncs is a table-driven Application. Nil entries behave as no-ops.
type AppFuncs struct {
	OnInitialize   LifecycleFunc
	OnDeinitialize LifecycleFunc
	OnBeforeLayout PhaseFunc
	OnAfterLayout  PhaseFunc
	OnBeforeUpdate PhaseFunc
	OnAfterUpdate  PhaseFunc
	OnBeforeRender PhaseFunc
	OnAfterRender  PhaseFunc
	OnWindowResize func(ctx context.Context, width, height int) error
}

var (
	_ Application   = BaseApplication{}
	_ Application   = (*AppFuncs)(nil)
	_ ResizeHandler = (*AppFuncs)(nil)
)

func (a *AppFuncs) Initialize(ctx context.Context) error   { return callLifecycle(a.OnInitialize, ctx) }
func (a *AppFuncs) Deinitialize(ctx context.Context) error { return callLifecycle(a.OnDeinitialize, ctx) }

func (a *AppFuncs) BeforeLayout(ctx context.Context, f Frame) error {
	return callPhase(a.OnBeforeLayout, ctx, f)
}

func (a *AppFuncs) AfterLayout(ctx context.Context, f Frame) error {
	return callPhase(a.OnAfterLayout, ctx, f)
}

func (a *AppFuncs) BeforeUpdate(ctx context.Context, f Frame) error {
	return callPhase(a.OnBeforeUpdate, ctx, f)
}

func (a *AppFuncs) AfterUpdate(ctx context.Context, f Frame) error {
	return callPhase(a.OnAfterUpdate, ctx, f)
}

func (a *AppFuncs) BeforeRender(ctx context.Context, f Frame) error {
	return callPhase(a.OnBeforeRender, ctx, f)
}

func (a *AppFuncs) AfterRender(ctx context.Context, f Frame) error {
	return callPhase(a.OnAfterRender, ctx, f)
}

func (a *AppFuncs) OnResize(ctx context.Context, width, height int) error {
	if a.OnWindowResize == nil {
		return nil
	}
	return a.OnWindowResize(ctx, width, height)
}

func callLifecycle(fn LifecycleFunc, ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func callPhase(fn PhaseFunc, ctx context.Context, f Frame) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, f)
}
