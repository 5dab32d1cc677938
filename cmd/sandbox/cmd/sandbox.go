package cmd

import (
	"context"
	"math"

	"github.com/GoCodeAlone/doodle"
	"github.com/GoCodeAlone/doodle/events"
)

// Sandbox is the demo application. It spins a model at a fixed angular speed
// and toggles wireframe rendering with the "w" key.
type Sandbox struct {
	doodle.BaseApplication

	host      doodle.Host
	logger    doodle.Logger
	rotation  float64
	wireframe bool
	rendered  uint64
}

const spinDegreesPerSecond = 100.0

// NewSandbox returns a factory for Sandbox applications bound to host.
func NewSandbox(host doodle.Host) doodle.Factory {
	return func() doodle.Application {
		return &Sandbox{host: host, logger: host.Logger()}
	}
}

func (s *Sandbox) Initialize(context.Context) error {
	err := s.host.Events().Register(events.NewFuncListener("sandbox-keys", 0, s.onKey, events.TypeKeyPressed))
	if err != nil {
		return err
	}
	s.logger.Info("Sandbox initialized")
	return nil
}

func (s *Sandbox) Deinitialize(context.Context) error {
	s.host.Events().Unregister("sandbox-keys")
	s.logger.Info("Sandbox deinitialized", "rendered", s.rendered, "rotation", s.rotation)
	return nil
}

func (s *Sandbox) BeforeLayout(_ context.Context, f doodle.Frame) error {
	s.logger.Debug("BeforeLayout", "frame", f.Index)
	return nil
}

func (s *Sandbox) AfterLayout(_ context.Context, f doodle.Frame) error {
	s.logger.Debug("AfterLayout", "frame", f.Index, "fps", f.FPS)
	return nil
}

func (s *Sandbox) BeforeUpdate(_ context.Context, f doodle.Frame) error {
	s.logger.Debug("BeforeUpdate", "frame", f.Index)
	return nil
}

func (s *Sandbox) AfterUpdate(_ context.Context, f doodle.Frame) error {
	s.rotation = math.Mod(s.rotation+spinDegreesPerSecond*f.Delta.Seconds(), 360)
	s.logger.Debug("AfterUpdate", "frame", f.Index, "rotation", s.rotation)
	return nil
}

func (s *Sandbox) BeforeRender(_ context.Context, f doodle.Frame) error {
	s.logger.Debug("BeforeRender", "frame", f.Index, "wireframe", s.wireframe)
	return nil
}

func (s *Sandbox) AfterRender(_ context.Context, f doodle.Frame) error {
	s.rendered++
	s.logger.Debug("AfterRender", "frame", f.Index)
	return nil
}

func (s *Sandbox) OnResize(_ context.Context, width, height int) error {
	s.logger.Info("Viewport resized", "width", width, "height", height)
	return nil
}

func (s *Sandbox) onKey(_ context.Context, ev events.Event) (bool, error) {
	key, ok := ev.(events.KeyPressed)
	if !ok || key.Key != "w" {
		return false, nil
	}
	s.wireframe = !s.wireframe
	s.logger.Info("Wireframe toggled", "enabled", s.wireframe)
	return true, nil
}

// Rotation returns the current model rotation in degrees.
func (s *Sandbox) Rotation() float64 { return s.rotation }

// Wireframe reports whether wireframe rendering is on.
func (s *Sandbox) Wireframe() bool { return s.wireframe }

// Rendered returns how many frames finished rendering.
func (s *Sandbox) Rendered() uint64 { return s.rendered }
