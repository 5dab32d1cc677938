package doodle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/GoCodeAlone/doodle/events"
	"github.com/GoCodeAlone/doodle/platform"
)

type phaseStep struct {
	subsystem string
	run       PhaseFunc
}

// Run initializes the application, drives frames until termination is
// requested and tears everything down. It blocks on the calling goroutine,
// which is the only goroutine hooks ever run on.
//
// The loop ends when Terminate is called, the window reports a close
// request, ctx is done or the configured frame limit is reached. Each of
// these is observed between frames, so a started frame always completes.
//
// Startup failures match ErrStartup; Deinitialize is not called for them.
// A hook failure during the loop matches ErrRuntimeHook and is returned
// after teardown, joined with any teardown errors. Run may be called once.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	created := r.created
	r.mu.Unlock()
	if !created {
		return &LifecycleOrderError{
			Op:     "Run",
			From:   r.State(),
			To:     StateInitialized,
			Detail: "CreateApp has not been called",
		}
	}
	if !r.ran.CompareAndSwap(false, true) {
		return &LifecycleOrderError{
			Op:     "Run",
			From:   r.State(),
			To:     StateInitialized,
			Detail: "Run may only be called once",
		}
	}

	if err := r.startup(ctx); err != nil {
		r.logger.Error("Application startup failed", "error", err)
		r.emit(ctx, EventTypeApplicationFailed, map[string]any{"phase": "startup", "error": err.Error()})
		return err
	}

	loopErr := r.loop(ctx)
	if loopErr != nil {
		r.logger.Error("Frame loop failed", "frame", r.frameIndex.Load(), "error", loopErr)
		r.emit(ctx, EventTypeApplicationFailed, map[string]any{"phase": "loop", "error": loopErr.Error()})
	}

	return errors.Join(loopErr, r.teardown(ctx))
}

func (r *Runner) startup(ctx context.Context) error {
	order, err := resolveSubsystemOrder(r.Subsystems())
	if err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrStartup, err), r.releaseWindow())
	}
	names := make([]string, 0, len(order))
	for _, s := range order {
		names = append(names, s.Name())
	}
	r.logger.Debug("Subsystem order", "order", names)

	for _, s := range order {
		if init, ok := s.(Initializable); ok {
			err := r.invoke(HookInitialize, s.Name(), 0, func() error { return init.Init(ctx, r) })
			if err != nil {
				return r.abortStartup(ctx, err)
			}
		}
		r.started = append(r.started, s)
		r.collectSteps(s)
	}

	if err := r.invoke(HookInitialize, "", 0, func() error { return r.app.Initialize(ctx) }); err != nil {
		return r.abortStartup(ctx, err)
	}
	if err := r.advance(ctx, "Initialize", StateInitialized); err != nil {
		return r.abortStartup(ctx, err)
	}
	r.logger.Info("Application initialized", "title", r.title, "subsystems", len(r.started))
	return nil
}

func (r *Runner) collectSteps(s Subsystem) {
	if l, ok := s.(Layouter); ok {
		r.layoutSteps = append(r.layoutSteps, phaseStep{subsystem: s.Name(), run: l.Layout})
	}
	if u, ok := s.(Updater); ok {
		r.updateSteps = append(r.updateSteps, phaseStep{subsystem: s.Name(), run: u.Update})
	}
	if rn, ok := s.(Renderer); ok {
		r.renderSteps = append(r.renderSteps, phaseStep{subsystem: s.Name(), run: rn.Render})
	}
}

// abortStartup undoes a partial startup. The application is never
// deinitialized here because it never reached Initialized.
func (r *Runner) abortStartup(ctx context.Context, cause error) error {
	errs := []error{fmt.Errorf("%w: %w", ErrStartup, cause)}
	errs = append(errs, r.stopSubsystems(context.WithoutCancel(ctx))...)
	errs = append(errs, r.releaseWindow())
	return errors.Join(errs...)
}

func (r *Runner) loop(ctx context.Context) error {
	if err := r.advance(ctx, "Run", StateRunning); err != nil {
		return err
	}
	r.clock.reset()
	r.logger.Info("Application running", "targetFps", r.targetFPS, "maxFrames", r.maxFrames)

	for !r.terminate.Load() && ctx.Err() == nil {
		if err := r.pollEvents(ctx); err != nil {
			r.reportHookError(ctx, err)
			if r.policy == FailFast {
				return fmt.Errorf("%w: %w", ErrRuntimeHook, err)
			}
			continue
		}

		frame := r.beginFrame()
		if err := r.runFrame(ctx, frame); err != nil {
			r.reportHookError(ctx, err)
			if r.policy == FailFast {
				return fmt.Errorf("%w: %w", ErrRuntimeHook, err)
			}
		} else {
			r.completed.Add(1)
			if r.diagnostics {
				r.emit(ctx, EventTypeFrameCompleted, map[string]any{
					"frame":   frame.Index,
					"delta":   frame.Delta.Seconds(),
					"elapsed": frame.Elapsed.Seconds(),
					"fps":     frame.FPS,
				})
			}
		}

		if r.maxFrames > 0 && frame.Index >= r.maxFrames {
			r.logger.Debug("Frame limit reached", "frames", frame.Index)
			r.terminate.Store(true)
		}
		if r.limiter != nil && !r.terminate.Load() {
			r.pace(ctx)
		}
	}

	if err := ctx.Err(); err != nil {
		r.logger.Info("Run context done", "reason", context.Cause(ctx))
	}
	return nil
}

// pollEvents drains window events. Runner bookkeeping for an event happens
// before listeners see it, so listeners cannot veto a close request.
func (r *Runner) pollEvents(ctx context.Context) error {
	next := r.frameIndex.Load() + 1
	for _, ev := range r.window.PollEvents() {
		switch e := ev.(type) {
		case events.WindowClose:
			if r.terminate.CompareAndSwap(false, true) {
				r.logger.Info("Window close requested", "frame", next)
				r.emit(ctx, EventTypeWindowCloseRequested, map[string]any{"frame": next})
			}
		case events.WindowResize:
			r.width.Store(int64(e.Width))
			r.height.Store(int64(e.Height))
			r.emit(ctx, EventTypeWindowResized, map[string]any{"width": e.Width, "height": e.Height})
			if rh, ok := r.app.(ResizeHandler); ok {
				if err := r.invoke(HookResize, "", next, func() error { return rh.OnResize(ctx, e.Width, e.Height) }); err != nil {
					return err
				}
			}
		}

		err := r.invoke(HookEvent, "", next, func() error {
			_, err := r.dispatcher.Dispatch(ctx, ev)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) beginFrame() Frame {
	index := r.frameIndex.Add(1)
	delta, elapsed, fps := r.clock.tick()
	r.elapsed.Store(int64(elapsed))
	r.fpsBits.Store(math.Float64bits(fps))

	return Frame{
		Index:   index,
		Delta:   delta,
		Elapsed: elapsed,
		FPS:     fps,
		Width:   int(r.width.Load()),
		Height:  int(r.height.Load()),
	}
}

// runFrame executes the three phase brackets in order and presents the
// frame. It stops at the first failing call.
func (r *Runner) runFrame(ctx context.Context, f Frame) error {
	if err := r.runPhase(ctx, f, "layout", HookBeforeLayout, r.app.BeforeLayout, HookLayout, r.layoutSteps, HookAfterLayout, r.app.AfterLayout); err != nil {
		return err
	}
	if err := r.runPhase(ctx, f, "update", HookBeforeUpdate, r.app.BeforeUpdate, HookUpdate, r.updateSteps, HookAfterUpdate, r.app.AfterUpdate); err != nil {
		return err
	}
	if err := r.runPhase(ctx, f, "render", HookBeforeRender, r.app.BeforeRender, HookRender, r.renderSteps, HookAfterRender, r.app.AfterRender); err != nil {
		return err
	}

	stats := platform.FrameStats{
		Index:   f.Index,
		FPS:     f.FPS,
		Elapsed: f.Elapsed,
		State:   r.State().String(),
	}
	return r.invoke(HookPresent, "", f.Index, func() error { return r.window.Present(stats) })
}

func (r *Runner) runPhase(ctx context.Context, f Frame, name string,
	before Hook, beforeFn PhaseFunc, body Hook, steps []phaseStep, after Hook, afterFn PhaseFunc,
) error {
	if r.diagnostics {
		r.logger.Debug("Phase begin", "phase", name, "frame", f.Index)
	}
	if err := r.invoke(before, "", f.Index, func() error { return beforeFn(ctx, f) }); err != nil {
		return err
	}
	for _, step := range steps {
		if err := r.invoke(body, step.subsystem, f.Index, func() error { return step.run(ctx, f) }); err != nil {
			return err
		}
	}
	if err := r.invoke(after, "", f.Index, func() error { return afterFn(ctx, f) }); err != nil {
		return err
	}
	if r.diagnostics {
		r.logger.Debug("Phase end", "phase", name, "frame", f.Index)
	}
	return nil
}

// teardown runs exactly once after the loop. It ignores cancellation of the
// run context so cleanup always completes.
func (r *Runner) teardown(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error

	if err := r.advance(ctx, "Deinitialize", StateTerminating); err != nil {
		errs = append(errs, err)
	}

	r.logger.Info("Deinitializing application", "frames", r.completed.Load())
	if err := r.invoke(HookDeinitialize, "", r.frameIndex.Load(), func() error { return r.app.Deinitialize(ctx) }); err != nil {
		r.logger.Error("Deinitialize failed", "error", err)
		errs = append(errs, err)
	}

	errs = append(errs, r.stopSubsystems(ctx)...)

	if err := r.advance(ctx, "Deinitialize", StateDeinitialized); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, r.releaseWindow())
	return errors.Join(errs...)
}

// stopSubsystems stops started subsystems in reverse start order. Every
// subsystem is stopped even if an earlier one fails.
func (r *Runner) stopSubsystems(ctx context.Context) []error {
	var errs []error
	for _, s := range slices.Backward(r.started) {
		st, ok := s.(Stoppable)
		if !ok {
			continue
		}
		if err := r.invoke(HookDeinitialize, s.Name(), r.frameIndex.Load(), func() error { return st.Stop(ctx) }); err != nil {
			r.logger.Error("Failed to stop subsystem", "subsystem", s.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	r.started = nil
	return errs
}

func (r *Runner) releaseWindow() error {
	if r.released {
		return nil
	}
	r.released = true

	r.mu.Lock()
	w := r.window
	r.mu.Unlock()

	if err := w.Close(); err != nil {
		r.logger.Error("Failed to release window", "error", err)
		return fmt.Errorf("release window: %w", err)
	}
	r.logger.Debug("Window released")
	return nil
}

// advance moves the state machine one step forward.
func (r *Runner) advance(ctx context.Context, op string, next ApplicationState) error {
	cur := r.State()
	if !cur.CanAdvanceTo(next) || !r.state.CompareAndSwap(int32(cur), int32(next)) {
		return &LifecycleOrderError{Op: op, From: cur, To: next}
	}
	r.logger.Debug("State changed", "from", cur.String(), "to", next.String())
	r.emit(ctx, stateEventTypes[next], map[string]any{
		"from": cur.String(),
		"to":   next.String(),
	})
	return nil
}

var stateEventTypes = map[ApplicationState]string{
	StateInitialized:   EventTypeApplicationInitialized,
	StateRunning:       EventTypeApplicationRunning,
	StateTerminating:   EventTypeApplicationTerminating,
	StateDeinitialized: EventTypeApplicationDeinitialized,
}

// invoke calls fn and converts an error or panic into a *HookError.
func (r *Runner) invoke(hook Hook, subsystem string, frame uint64, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HookError{Hook: hook, Subsystem: subsystem, Frame: frame, Err: fmt.Errorf("%w: %v", ErrHookPanic, rec)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &HookError{Hook: hook, Subsystem: subsystem, Frame: frame, Err: ferr}
	}
	return nil
}

func (r *Runner) reportHookError(ctx context.Context, err error) {
	data := map[string]any{"error": err.Error(), "policy": r.policy.String()}
	var hookErr *HookError
	if errors.As(err, &hookErr) {
		data["hook"] = string(hookErr.Hook)
		data["frame"] = hookErr.Frame
		if hookErr.Subsystem != "" {
			data["subsystem"] = hookErr.Subsystem
		}
	}
	r.logger.Error("Hook failed", "error", err, "policy", r.policy.String())
	r.emit(ctx, EventTypeHookFailed, data)
}

// pace sleeps until the limiter grants the next frame or ctx is done,
// whichever comes first. Unlike Limiter.Wait it still sleeps when the ctx
// deadline is nearer than the next token.
func (r *Runner) pace(ctx context.Context) {
	res := r.limiter.Reserve()
	delay := res.Delay()
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		res.Cancel()
	}
}
