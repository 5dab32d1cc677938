package doodle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunner_Defaults(t *testing.T) {
	runner, err := NewRunner()
	require.NoError(t, err)

	assert.Equal(t, StateUninitialized, runner.State())
	assert.False(t, runner.TerminationRequested())
	assert.Nil(t, runner.Window())
	assert.Nil(t, runner.Application())
	assert.NotNil(t, runner.Events())
	assert.NotNil(t, runner.Logger())
	assert.Empty(t, runner.GetObservers())
}

func TestNewRunner_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		err  error
	}{
		{"nil opener", WithWindowOpener(nil), ErrWindowOpenerNil},
		{"negative fps", WithTargetFPS(-30), ErrInvalidTargetFPS},
		{"unknown policy", WithHookErrorPolicy(HookErrorPolicy(9)), ErrUnknownHookErrorPolicy},
		{"nil observer", WithObserver(nil), ErrObserverNil},
		{"nil subsystem", WithSubsystems(nil), ErrSubsystemNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := NewRunner(tt.opt)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, runner)
		})
	}
}

func TestWithTargetFPS(t *testing.T) {
	runner, err := NewRunner(WithTargetFPS(30))
	require.NoError(t, err)
	assert.NotNil(t, runner.limiter)
	assert.Equal(t, 30.0, runner.Stats().TargetFPS)

	runner, err = NewRunner(WithTargetFPS(30), WithTargetFPS(0))
	require.NoError(t, err)
	assert.Nil(t, runner.limiter)
}

func TestWithObserver_AssignsIDs(t *testing.T) {
	noop := func(context.Context, CloudEvent) error { return nil }
	runner, err := NewRunner(WithObserver(noop, noop), WithObserver(noop))
	require.NoError(t, err)

	var ids []string
	for _, info := range runner.GetObservers() {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{"observer-0", "observer-1", "observer-2"}, ids)
}

func TestParseHookErrorPolicy(t *testing.T) {
	tests := []struct {
		in       string
		expected HookErrorPolicy
	}{
		{"", FailFast},
		{"fail-fast", FailFast},
		{"FailFast", FailFast},
		{"skip-frame", SkipFrame},
		{" SKIP-FRAME ", SkipFrame},
	}
	for _, tt := range tests {
		policy, err := ParseHookErrorPolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, policy, tt.in)
	}

	_, err := ParseHookErrorPolicy("retry")
	assert.ErrorIs(t, err, ErrUnknownHookErrorPolicy)

	assert.Equal(t, "fail-fast", FailFast.String())
	assert.Equal(t, "skip-frame", SkipFrame.String())
	assert.Equal(t, "HookErrorPolicy(7)", HookErrorPolicy(7).String())
}
