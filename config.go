package doodle

import (
	"errors"
	"fmt"
)

// Feeder populates a configuration struct from one source. The feeders
// package provides environment and file implementations.
type Feeder interface {
	Feed(target any) error
}

// LoadConfig applies defaults to target, runs feeders in order over them,
// then checks required fields and ConfigValidator. Later feeders override
// earlier ones, and a value a feeder sets explicitly, zero included, is kept.
// Every failure matches ErrConfiguration.
func LoadConfig(target any, feeders ...Feeder) error {
	if target == nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrConfigNil)
	}
	if err := ProcessConfigDefaults(target); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	for i, f := range feeders {
		if f == nil {
			continue
		}
		if err := f.Feed(target); err != nil {
			return fmt.Errorf("%w: %w: feeder %d (%T): %w", ErrConfiguration, ErrConfigFeederError, i, f, err)
		}
	}
	if err := validateFed(target); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// FileConfig is the configuration a bootstrap loads from files and the
// environment.
type FileConfig struct {
	Window   WindowSection   `yaml:"window" toml:"window" json:"window"`
	Runner   RunnerSection   `yaml:"runner" toml:"runner" json:"runner"`
	Debug    DebugSection    `yaml:"debug" toml:"debug" json:"debug"`
	Log      LogSection      `yaml:"log" toml:"log" json:"log"`
	Watch    WatchSection    `yaml:"watch" toml:"watch" json:"watch"`
	Schedule ScheduleSection `yaml:"schedule" toml:"schedule" json:"schedule"`
}

// WindowSection configures the window.
type WindowSection struct {
	Title  string `yaml:"title" toml:"title" json:"title" env:"WINDOW_TITLE" default:"Doodle" required:"true"`
	Width  int    `yaml:"width" toml:"width" json:"width" env:"WINDOW_WIDTH" default:"1920"`
	Height int    `yaml:"height" toml:"height" json:"height" env:"WINDOW_HEIGHT" default:"1080"`
}

// RunnerSection configures the frame loop.
type RunnerSection struct {
	TargetFPS       float64 `yaml:"targetFps" toml:"target_fps" json:"targetFps" env:"TARGET_FPS" default:"60"`
	MaxFrames       uint64  `yaml:"maxFrames" toml:"max_frames" json:"maxFrames" env:"MAX_FRAMES"`
	Diagnostics     bool    `yaml:"diagnostics" toml:"diagnostics" json:"diagnostics" env:"DIAGNOSTICS"`
	HookErrorPolicy string  `yaml:"hookErrorPolicy" toml:"hook_error_policy" json:"hookErrorPolicy" env:"HOOK_ERROR_POLICY" default:"fail-fast"`
}

// DebugSection configures the debug HTTP server. An empty Addr disables it.
type DebugSection struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr" env:"DEBUG_ADDR"`
}

// LogSection configures logging.
type LogSection struct {
	Level       string `yaml:"level" toml:"level" json:"level" env:"LOG_LEVEL" default:"info"`
	Format      string `yaml:"format" toml:"format" json:"format" env:"LOG_FORMAT" default:"console"`
	Development bool   `yaml:"development" toml:"development" json:"development" env:"LOG_DEVELOPMENT"`
}

// WatchSection lists files and directories whose changes are reported.
type WatchSection struct {
	Paths []string `yaml:"paths" toml:"paths" json:"paths"`
}

// ScheduleSection configures recurring jobs. StatsSpec is a cron spec for
// the periodic stats log; empty disables it.
type ScheduleSection struct {
	StatsSpec string `yaml:"stats" toml:"stats" json:"stats" env:"SCHEDULE_STATS" default:"@every 5s"`
}

// Validate implements ConfigValidator.
func (c *FileConfig) Validate() error {
	var errs []error
	if _, err := c.WindowConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.Runner.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTargetFPS, c.Runner.TargetFPS))
	}
	if _, err := ParseHookErrorPolicy(c.Runner.HookErrorPolicy); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// WindowConfig builds the validated window configuration.
func (c *FileConfig) WindowConfig() (WindowConfig, error) {
	return NewWindowConfig(c.Window.Title, c.Window.Width, c.Window.Height)
}

// RunnerOptions translates the runner section into Runner options.
func (c *FileConfig) RunnerOptions() ([]Option, error) {
	policy, err := ParseHookErrorPolicy(c.Runner.HookErrorPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return []Option{
		WithTargetFPS(c.Runner.TargetFPS),
		WithMaxFrames(c.Runner.MaxFrames),
		WithDiagnostics(c.Runner.Diagnostics),
		WithHookErrorPolicy(policy),
	}, nil
}
