package doodle

import (
	"context"
	"fmt"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"golang.org/x/time/rate"

	"github.com/GoCodeAlone/doodle/platform"
)

// Option represents a functional option for configuring a Runner.
type Option func(*Runner) error

// HookErrorPolicy decides what the loop does when a hook fails.
type HookErrorPolicy int

const (
	// FailFast stops the frame at the failing call, tears down and returns
	// the error from Run.
	FailFast HookErrorPolicy = iota

	// SkipFrame logs the error, abandons the rest of the frame and keeps
	// running.
	SkipFrame
)

func (p HookErrorPolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SkipFrame:
		return "skip-frame"
	default:
		return fmt.Sprintf("HookErrorPolicy(%d)", int(p))
	}
}

// ParseHookErrorPolicy accepts "fail-fast" or "skip-frame".
func ParseHookErrorPolicy(s string) (HookErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "skip-frame", "skipframe":
		return SkipFrame, nil
	default:
		return FailFast, fmt.Errorf("%w: %q", ErrUnknownHookErrorPolicy, s)
	}
}

// ObserverFunc is a functional observer registered through WithObserver.
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// WithLogger sets the runner logger. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = nopLogger{}
		}
		r.logger = logger
		return nil
	}
}

// WithWindowOpener sets how CreateApp creates the window.
func WithWindowOpener(opener platform.Opener) Option {
	return func(r *Runner) error {
		if opener == nil {
			return ErrWindowOpenerNil
		}
		r.opener = opener
		return nil
	}
}

// WithSubsystems registers subsystems to run alongside the application.
func WithSubsystems(subsystems ...Subsystem) Option {
	return func(r *Runner) error {
		for _, s := range subsystems {
			if err := r.RegisterSubsystem(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithObserver registers functional observers for all runner events.
func WithObserver(observers ...ObserverFunc) Option {
	return func(r *Runner) error {
		for _, fn := range observers {
			if fn == nil {
				return ErrObserverNil
			}
			id := fmt.Sprintf("observer-%d", len(r.observers))
			if err := r.RegisterObserver(NewFunctionalObserver(id, fn)); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithSynchronousObservers delivers every notification on the emitting
// goroutine instead of spawning one per observer.
func WithSynchronousObservers() Option {
	return func(r *Runner) error {
		r.syncObservers = true
		return nil
	}
}

// WithTargetFPS caps the frame rate. Zero leaves the loop unpaced.
func WithTargetFPS(fps float64) Option {
	return func(r *Runner) error {
		if fps < 0 {
			return fmt.Errorf("%w: %w: %v", ErrConfiguration, ErrInvalidTargetFPS, fps)
		}
		r.targetFPS = fps
		if fps == 0 {
			r.limiter = nil
			return nil
		}
		r.limiter = rate.NewLimiter(rate.Limit(fps), 1)
		return nil
	}
}

// WithMaxFrames ends the loop after n frames. Zero means unlimited.
func WithMaxFrames(n uint64) Option {
	return func(r *Runner) error {
		r.maxFrames = n
		return nil
	}
}

// WithDiagnostics enables per-phase debug logging and frame events.
func WithDiagnostics(enabled bool) Option {
	return func(r *Runner) error {
		r.diagnostics = enabled
		return nil
	}
}

// WithHookErrorPolicy sets how runtime hook errors are handled.
func WithHookErrorPolicy(policy HookErrorPolicy) Option {
	return func(r *Runner) error {
		if policy != FailFast && policy != SkipFrame {
			return fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrUnknownHookErrorPolicy, policy)
		}
		r.policy = policy
		return nil
	}
}

// WithClock replaces time.Now for frame timing.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) error {
		if now != nil {
			r.clock.now = now
		}
		return nil
	}
}
