package feeders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envWindow struct {
	Title  string `env:"WINDOW_TITLE"`
	Width  int    `env:"WINDOW_WIDTH"`
	Height int    `env:"WINDOW_HEIGHT"`
}

type envConfig struct {
	Window    envWindow
	TargetFPS float64       `env:"TARGET_FPS"`
	Debug     bool          `env:"DEBUG"`
	Interval  time.Duration `env:"INTERVAL"`
	Untagged  string
	hidden    string `env:"HIDDEN"`
}

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvFeeder_Feed(t *testing.T) {
	f := EnvFeeder{Prefix: "doodle", lookup: fakeEnv(map[string]string{
		"DOODLE_WINDOW_TITLE":  "Sandbox",
		"DOODLE_WINDOW_WIDTH":  "1920",
		"DOODLE_WINDOW_HEIGHT": "1080",
		"DOODLE_TARGET_FPS":    "59.94",
		"DOODLE_DEBUG":         "true",
		"DOODLE_INTERVAL":      "250ms",
		"DOODLE_HIDDEN":        "nope",
		"WINDOW_TITLE":         "unprefixed",
	})}

	var cfg envConfig
	require.NoError(t, f.Feed(&cfg))

	assert.Equal(t, "Sandbox", cfg.Window.Title)
	assert.Equal(t, 1920, cfg.Window.Width)
	assert.Equal(t, 1080, cfg.Window.Height)
	assert.InDelta(t, 59.94, cfg.TargetFPS, 1e-9)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Empty(t, cfg.Untagged)
	assert.Empty(t, cfg.hidden)
}

func TestEnvFeeder_EmptyValuesKeepExisting(t *testing.T) {
	f := EnvFeeder{lookup: fakeEnv(map[string]string{"WINDOW_TITLE": ""})}

	cfg := envConfig{Window: envWindow{Title: "Doodle"}}
	require.NoError(t, f.Feed(&cfg))
	assert.Equal(t, "Doodle", cfg.Window.Title)
}

func TestEnvFeeder_ConversionError(t *testing.T) {
	f := EnvFeeder{lookup: fakeEnv(map[string]string{"WINDOW_WIDTH": "wide"})}

	var cfg envConfig
	err := f.Feed(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WINDOW_WIDTH")
	assert.Contains(t, err.Error(), "Window")
}

func TestEnvFeeder_InvalidStructure(t *testing.T) {
	f := NewEnvFeeder("")

	var notStruct int
	require.ErrorIs(t, f.Feed(&notStruct), ErrEnvInvalidStructure)
	require.ErrorIs(t, f.Feed(envConfig{}), ErrEnvInvalidStructure)
	require.ErrorIs(t, f.Feed(nil), ErrEnvInvalidStructure)
}

func TestEnvFeeder_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("DOODLE_TEST_WINDOW_TITLE", "From Env")

	var cfg envConfig
	require.NoError(t, NewEnvFeeder("DOODLE_TEST").Feed(&cfg))
	assert.Equal(t, "From Env", cfg.Window.Title)
}
