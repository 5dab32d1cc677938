package doodle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GoCodeAlone/doodle/platform"
	"github.com/GoCodeAlone/doodle/platform/headless"
)

var errHookFailed = errors.New("hook failed")

// recordingApp records every hook call as "Hook" or "Hook#frame".
type recordingApp struct {
	calls []string

	// failOn makes the named hook fail on the given frame (0 for lifecycle hooks).
	failOn    map[string]uint64
	panicOn   map[string]uint64
	terminate func()
	stopAfter uint64
}

func newRecordingApp() *recordingApp {
	return &recordingApp{failOn: map[string]uint64{}, panicOn: map[string]uint64{}}
}

func (a *recordingApp) lifecycle(name string) error {
	a.calls = append(a.calls, name)
	if _, ok := a.failOn[name]; ok {
		return fmt.Errorf("%s: %w", name, errHookFailed)
	}
	if _, ok := a.panicOn[name]; ok {
		panic(name + " exploded")
	}
	return nil
}

func (a *recordingApp) phase(name string, f Frame) error {
	a.calls = append(a.calls, fmt.Sprintf("%s#%d", name, f.Index))
	if frame, ok := a.failOn[name]; ok && frame == f.Index {
		return fmt.Errorf("%s on frame %d: %w", name, f.Index, errHookFailed)
	}
	if frame, ok := a.panicOn[name]; ok && frame == f.Index {
		panic(name + " exploded")
	}
	if name == "AfterRender" && a.terminate != nil && a.stopAfter > 0 && f.Index >= a.stopAfter {
		a.terminate()
	}
	return nil
}

func (a *recordingApp) Initialize(context.Context) error   { return a.lifecycle("Initialize") }
func (a *recordingApp) Deinitialize(context.Context) error { return a.lifecycle("Deinitialize") }

func (a *recordingApp) BeforeLayout(_ context.Context, f Frame) error {
	return a.phase("BeforeLayout", f)
}

func (a *recordingApp) AfterLayout(_ context.Context, f Frame) error {
	return a.phase("AfterLayout", f)
}

func (a *recordingApp) BeforeUpdate(_ context.Context, f Frame) error {
	return a.phase("BeforeUpdate", f)
}

func (a *recordingApp) AfterUpdate(_ context.Context, f Frame) error {
	return a.phase("AfterUpdate", f)
}

func (a *recordingApp) BeforeRender(_ context.Context, f Frame) error {
	return a.phase("BeforeRender", f)
}

func (a *recordingApp) AfterRender(_ context.Context, f Frame) error {
	return a.phase("AfterRender", f)
}

func (a *recordingApp) count(name string) int {
	n := 0
	for _, c := range a.calls {
		if c == name || strings.HasPrefix(c, name+"#") {
			n++
		}
	}
	return n
}

// frameCalls returns the hook calls expected for frames 1..n.
func frameCalls(n uint64) []string {
	var calls []string
	for i := uint64(1); i <= n; i++ {
		for _, h := range []string{"BeforeLayout", "AfterLayout", "BeforeUpdate", "AfterUpdate", "BeforeRender", "AfterRender"} {
			calls = append(calls, fmt.Sprintf("%s#%d", h, i))
		}
	}
	return calls
}

// windowRecorder captures headless windows opened by a runner.
type windowRecorder struct {
	mu      sync.Mutex
	windows []*headless.Window
}

func (w *windowRecorder) opener(opts ...headless.Option) platform.Opener {
	return headless.Opener(func(win *headless.Window) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.windows = append(w.windows, win)
	}, opts...)
}

func (w *windowRecorder) last() *headless.Window {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.windows) == 0 {
		return nil
	}
	return w.windows[len(w.windows)-1]
}

// testLogger records log messages.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *testLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

func (l *testLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

// recordingSubsystem records its calls into a shared journal.
type recordingSubsystem struct {
	name    string
	deps    []string
	order   int
	journal *[]string
	initErr error
	stopErr error
	updErr  error
}

func (s *recordingSubsystem) Name() string           { return s.name }
func (s *recordingSubsystem) Dependencies() []string { return s.deps }
func (s *recordingSubsystem) ExecutionOrder() int    { return s.order }

func (s *recordingSubsystem) Init(context.Context, Host) error {
	*s.journal = append(*s.journal, "init:"+s.name)
	return s.initErr
}

func (s *recordingSubsystem) Stop(context.Context) error {
	*s.journal = append(*s.journal, "stop:"+s.name)
	return s.stopErr
}

func (s *recordingSubsystem) Layout(_ context.Context, f Frame) error {
	*s.journal = append(*s.journal, fmt.Sprintf("layout:%s#%d", s.name, f.Index))
	return nil
}

func (s *recordingSubsystem) Update(_ context.Context, f Frame) error {
	*s.journal = append(*s.journal, fmt.Sprintf("update:%s#%d", s.name, f.Index))
	return s.updErr
}

func (s *recordingSubsystem) Render(_ context.Context, f Frame) error {
	*s.journal = append(*s.journal, fmt.Sprintf("render:%s#%d", s.name, f.Index))
	return nil
}
