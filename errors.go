package doodle

import (
	"errors"
	"fmt"
)

// Runner errors
var (
	// ErrConfiguration reports an invalid window or runner configuration.
	// Nothing has been created when it is returned.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrStartup reports a failure before the application reached the
	// Initialized state: window creation, application construction,
	// subsystem initialization or the Initialize hook itself.
	ErrStartup = errors.New("startup failed")

	// ErrLifecycleOrder reports an operation attempted outside of its valid state.
	ErrLifecycleOrder = errors.New("lifecycle order violation")

	// ErrRuntimeHook reports an error raised by a hook or subsystem phase
	// while the frame loop was running.
	ErrRuntimeHook = errors.New("runtime hook error")

	// ErrHookPanic marks a recovered panic inside a hook.
	ErrHookPanic = errors.New("hook panicked")

	// Config errors
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrIncompatibleFieldKind      = errors.New("incompatible field kind")
	ErrConfigFeederError          = errors.New("config feeder error")
	ErrUnknownHookErrorPolicy     = errors.New("unknown hook error policy")

	// Subsystem errors
	ErrSubsystemNil               = errors.New("subsystem is nil")
	ErrSubsystemAlreadyExists     = errors.New("subsystem already registered")
	ErrCircularDependency         = errors.New("circular dependency detected")
	ErrSubsystemDependencyMissing = errors.New("subsystem depends on non-existent subsystem")

	// Construction errors
	ErrFactoryNil       = errors.New("application factory is nil")
	ErrApplicationNil   = errors.New("application factory returned nil")
	ErrWindowOpenerNil  = errors.New("window opener is nil")
	ErrObserverNil      = errors.New("observer is nil")
	ErrInvalidTargetFPS = errors.New("target fps must not be negative")
)

// LifecycleOrderError identifies the operation and the state transition that
// was rejected. It matches ErrLifecycleOrder with errors.Is.
type LifecycleOrderError struct {
	Op     string
	From   ApplicationState
	To     ApplicationState
	Detail string
}

func (e *LifecycleOrderError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s -> %s", ErrLifecycleOrder, e.Op, e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether target is ErrLifecycleOrder.
func (e *LifecycleOrderError) Is(target error) bool {
	return target == ErrLifecycleOrder
}

// HookError carries the hook (or subsystem phase) that failed and the frame
// it failed in. Frame is zero for Initialize and subsystem Init. Window event
// handling reports the frame about to start.
type HookError struct {
	Hook      Hook
	Subsystem string
	Frame     uint64
	Err       error
}

func (e *HookError) Error() string {
	if e.Subsystem != "" {
		return fmt.Sprintf("%s of subsystem %q failed on frame %d: %v", e.Hook, e.Subsystem, e.Frame, e.Err)
	}
	return fmt.Sprintf("%s failed on frame %d: %v", e.Hook, e.Frame, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
