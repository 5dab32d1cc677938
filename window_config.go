package doodle

import (
	"fmt"
	"strings"

	"github.com/GoCodeAlone/doodle/platform"
)

// Default window values, matching the engine's historical defaults.
const (
	DefaultWindowTitle  = "Doodle"
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 720
)

// WindowConfig describes the window a Runner creates for its application.
// The zero value is invalid; use NewWindowConfig or DefaultWindowConfig.
// A WindowConfig cannot be modified once constructed.
type WindowConfig struct {
	title  string
	width  int
	height int
}

// NewWindowConfig validates the fields and returns an immutable WindowConfig.
// The error matches ErrConfiguration and names every offending field.
func NewWindowConfig(title string, width, height int) (WindowConfig, error) {
	cfg := WindowConfig{title: title, width: width, height: height}
	if err := cfg.Validate(); err != nil {
		return WindowConfig{}, err
	}
	return cfg, nil
}

// MustWindowConfig is like NewWindowConfig but panics on invalid input.
// It is intended for literals in main packages and tests.
func MustWindowConfig(title string, width, height int) WindowConfig {
	cfg, err := NewWindowConfig(title, width, height)
	if err != nil {
		panic(err)
	}
	return cfg
}

// DefaultWindowConfig returns {"Doodle", 1280, 720}.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{title: DefaultWindowTitle, width: DefaultWindowWidth, height: DefaultWindowHeight}
}

// Title returns the window title.
func (c WindowConfig) Title() string { return c.title }

// Width returns the window width in pixels.
func (c WindowConfig) Width() int { return c.width }

// Height returns the window height in pixels.
func (c WindowConfig) Height() int { return c.height }

// Validate checks the invariants NewWindowConfig enforces. CreateApp calls
// it again so a zero WindowConfig never reaches the window opener.
func (c WindowConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.title) == "" {
		problems = append(problems, "title must not be empty")
	}
	if c.width <= 0 {
		problems = append(problems, fmt.Sprintf("width must be positive, got %d", c.width))
	}
	if c.height <= 0 {
		problems = append(problems, fmt.Sprintf("height must be positive, got %d", c.height))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: window: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func (c WindowConfig) String() string {
	return fmt.Sprintf("%s (%dx%d)", c.title, c.width, c.height)
}

func (c WindowConfig) props() platform.Props {
	return platform.Props{Title: c.title, Width: c.width, Height: c.height}
}
