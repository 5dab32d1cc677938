package doodle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedSubsystem string

func (n namedSubsystem) Name() string { return string(n) }

func names(subsystems []Subsystem) []string {
	out := make([]string, 0, len(subsystems))
	for _, s := range subsystems {
		out = append(out, s.Name())
	}
	return out
}

func TestResolveSubsystemOrder(t *testing.T) {
	var journal []string
	sub := func(name string, order int, deps ...string) *recordingSubsystem {
		return &recordingSubsystem{name: name, order: order, deps: deps, journal: &journal}
	}

	tests := []struct {
		name       string
		subsystems []Subsystem
		expected   []string
	}{
		{
			name:       "registration order",
			subsystems: []Subsystem{namedSubsystem("a"), namedSubsystem("b"), namedSubsystem("c")},
			expected:   []string{"a", "b", "c"},
		},
		{
			name:       "execution order",
			subsystems: []Subsystem{sub("render", 10), sub("input", -10), sub("physics", 0)},
			expected:   []string{"input", "physics", "render"},
		},
		{
			name:       "dependencies first",
			subsystems: []Subsystem{sub("camera", -5, "scene"), sub("scene", 0), sub("ui", 0, "camera")},
			expected:   []string{"scene", "camera", "ui"},
		},
		{
			name:       "dependencies by rank",
			subsystems: []Subsystem{sub("app", 0, "late", "early"), sub("late", 5), sub("early", -5)},
			expected:   []string{"early", "late", "app"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := resolveSubsystemOrder(tt.subsystems)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(order))
		})
	}
}

func TestResolveSubsystemOrder_Errors(t *testing.T) {
	var journal []string

	_, err := resolveSubsystemOrder([]Subsystem{
		&recordingSubsystem{name: "a", deps: []string{"b"}, journal: &journal},
		&recordingSubsystem{name: "b", deps: []string{"a"}, journal: &journal},
	})
	assert.ErrorIs(t, err, ErrCircularDependency)

	_, err = resolveSubsystemOrder([]Subsystem{
		&recordingSubsystem{name: "a", deps: []string{"ghost"}, journal: &journal},
	})
	assert.ErrorIs(t, err, ErrSubsystemDependencyMissing)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegisterSubsystem(t *testing.T) {
	runner, _ := newTestRunner(t, WithMaxFrames(1))

	assert.ErrorIs(t, runner.RegisterSubsystem(nil), ErrSubsystemNil)
	require.NoError(t, runner.RegisterSubsystem(namedSubsystem("audio")))
	assert.ErrorIs(t, runner.RegisterSubsystem(namedSubsystem("audio")), ErrSubsystemAlreadyExists)
	assert.Equal(t, []string{"audio"}, names(runner.Subsystems()))

	createRecordingApp(t, runner)
	require.NoError(t, runner.Run(context.Background()))
	assert.ErrorIs(t, runner.RegisterSubsystem(namedSubsystem("late")), ErrLifecycleOrder)
}

func TestRun_SubsystemPhases(t *testing.T) {
	var journal []string
	physics := &recordingSubsystem{name: "physics", journal: &journal}
	scene := &recordingSubsystem{name: "scene", order: -1, journal: &journal}
	runner, _ := newTestRunner(t, WithSubsystems(physics, scene), WithMaxFrames(1))

	app := &AppFuncs{
		OnInitialize:   func(context.Context) error { journal = append(journal, "app:Initialize"); return nil },
		OnDeinitialize: func(context.Context) error { journal = append(journal, "app:Deinitialize"); return nil },
		OnBeforeLayout: func(context.Context, Frame) error { journal = append(journal, "app:BeforeLayout"); return nil },
		OnAfterLayout:  func(context.Context, Frame) error { journal = append(journal, "app:AfterLayout"); return nil },
		OnBeforeUpdate: func(context.Context, Frame) error { journal = append(journal, "app:BeforeUpdate"); return nil },
		OnAfterUpdate:  func(context.Context, Frame) error { journal = append(journal, "app:AfterUpdate"); return nil },
		OnBeforeRender: func(context.Context, Frame) error { journal = append(journal, "app:BeforeRender"); return nil },
		OnAfterRender:  func(context.Context, Frame) error { journal = append(journal, "app:AfterRender"); return nil },
	}
	_, err := runner.CreateApp(func() Application { return app }, DefaultWindowConfig())
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, []string{
		"init:scene", "init:physics", "app:Initialize",
		"app:BeforeLayout", "layout:scene#1", "layout:physics#1", "app:AfterLayout",
		"app:BeforeUpdate", "update:scene#1", "update:physics#1", "app:AfterUpdate",
		"app:BeforeRender", "render:scene#1", "render:physics#1", "app:AfterRender",
		"app:Deinitialize", "stop:physics", "stop:scene",
	}, journal)
}

func TestRun_SubsystemInitFailure(t *testing.T) {
	var journal []string
	first := &recordingSubsystem{name: "first", journal: &journal}
	broken := &recordingSubsystem{name: "broken", journal: &journal, initErr: errHookFailed}
	never := &recordingSubsystem{name: "never", journal: &journal}
	runner, rec := newTestRunner(t, WithSubsystems(first, broken, never))
	app := createRecordingApp(t, runner)

	err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrStartup)
	assert.ErrorIs(t, err, errHookFailed)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "broken", hookErr.Subsystem)

	assert.Equal(t, []string{"init:first", "init:broken", "stop:first"}, journal)
	assert.Empty(t, app.calls)
	assert.Equal(t, StateUninitialized, runner.State())
	assert.True(t, rec.last().Closed())
}

func TestRun_SubsystemDependencyFailure(t *testing.T) {
	var journal []string
	runner, rec := newTestRunner(t, WithSubsystems(&recordingSubsystem{name: "a", deps: []string{"missing"}, journal: &journal}))
	app := createRecordingApp(t, runner)

	err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrStartup)
	assert.ErrorIs(t, err, ErrSubsystemDependencyMissing)
	assert.Empty(t, journal)
	assert.Empty(t, app.calls)
	assert.True(t, rec.last().Closed())
}

func TestRun_InitializeFailureStopsSubsystems(t *testing.T) {
	var journal []string
	runner, _ := newTestRunner(t, WithSubsystems(
		&recordingSubsystem{name: "a", journal: &journal},
		&recordingSubsystem{name: "b", journal: &journal},
	))
	app := createRecordingApp(t, runner)
	app.failOn["Initialize"] = 0

	err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrStartup)
	assert.Equal(t, []string{"init:a", "init:b", "stop:b", "stop:a"}, journal)
}

func TestRun_SubsystemUpdateFailure(t *testing.T) {
	var journal []string
	runner, _ := newTestRunner(t, WithSubsystems(&recordingSubsystem{name: "physics", journal: &journal, updErr: errHookFailed}))
	app := createRecordingApp(t, runner)

	err := runner.Run(context.Background())
	assert.ErrorIs(t, err, ErrRuntimeHook)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, HookUpdate, hookErr.Hook)
	assert.Equal(t, "physics", hookErr.Subsystem)
	assert.Equal(t, uint64(1), hookErr.Frame)
	assert.NotContains(t, app.calls, "AfterUpdate#1")
	assert.Equal(t, "stop:physics", journal[len(journal)-1])
}

func TestRun_SubsystemStopErrorsAreJoined(t *testing.T) {
	var journal []string
	stopErr := errors.New("flush failed")
	runner, rec := newTestRunner(t, WithMaxFrames(1), WithSubsystems(
		&recordingSubsystem{name: "a", journal: &journal, stopErr: stopErr},
		&recordingSubsystem{name: "b", journal: &journal},
	))
	createRecordingApp(t, runner)

	err := runner.Run(context.Background())
	assert.ErrorIs(t, err, stopErr)
	assert.Equal(t, []string{"stop:b", "stop:a"}, journal[len(journal)-2:])
	assert.Equal(t, StateDeinitialized, runner.State())
	assert.True(t, rec.last().Closed())
}

type hostCapture struct {
	namedSubsystem
	host Host
}

func (h *hostCapture) Init(_ context.Context, host Host) error {
	h.host = host
	return nil
}

func TestSubsystemHost(t *testing.T) {
	capture := &hostCapture{namedSubsystem: "capture"}
	runner, _ := newTestRunner(t, WithSubsystems(capture))
	createRecordingApp(t, runner)

	runner.Terminate()
	require.NoError(t, runner.Run(context.Background()))

	require.NotNil(t, capture.host)
	assert.Same(t, runner, capture.host)
	assert.Same(t, runner.Events(), capture.host.Events())
	assert.Equal(t, StateDeinitialized, capture.host.State())
}
