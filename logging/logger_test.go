package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Info("Application initialized", "title", "Doodle", "subsystems", 2)
	logger.Debug("Phase begin", "phase", "layout", "frame", uint64(1))
	logger.Warn("Observer error", "observerID", "metrics")
	logger.Error("Hook failed", "hook", "BeforeUpdate")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "Application initialized", entries[0].Message)
	assert.Equal(t, map[string]any{"title": "Doodle", "subsystems": int64(2)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "BeforeUpdate", entries[3].ContextMap()["hook"])
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := Wrap(zap.New(core)).Named("runner").With("title", "Doodle")

	logger.Info("Window created")
	logger.Debug("filtered out")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "runner", entries[0].LoggerName)
	assert.Equal(t, "Doodle", entries[0].ContextMap()["title"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: " warn ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	require.NotNil(t, logger.Zap())
	assert.True(t, logger.Zap().Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud"})
	require.Error(t, err)

	_, err = New(Config{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestEncodingFormat(t *testing.T) {
	enc, err := encodingFormat("", true)
	require.NoError(t, err)
	assert.Equal(t, "console", enc)

	enc, err = encodingFormat("", false)
	require.NoError(t, err)
	assert.Equal(t, "json", enc)

	enc, err = encodingFormat("JSON", true)
	require.NoError(t, err)
	assert.Equal(t, "json", enc)
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.NotPanics(t, func() {
		logger.Info("ignored", "k", "v")
		logger.Error("ignored")
	})
}
