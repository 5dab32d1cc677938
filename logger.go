package doodle

// Logger defines the interface for runner logging.
// The runner uses structured logging with key-value pairs:
//
//	logger.Info("Application initialized", "title", "Doodle", "subsystems", 3)
//
// Logging is observability only. A nil Logger passed to WithLogger is
// replaced by a no-op implementation and the lifecycle behaves identically.
//
// The logging package provides a zap-backed implementation.
type Logger interface {
	// Info logs lifecycle milestones: window created, application
	// initialized, application deinitializing.
	Info(msg string, args ...any)

	// Error logs hook failures and teardown problems.
	Error(msg string, args ...any)

	// Warn logs conditions the runner recovered from, such as a dropped
	// observer notification.
	Warn(msg string, args ...any)

	// Debug logs per-frame phase brackets when diagnostics are enabled.
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
