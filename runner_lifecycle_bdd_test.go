package doodle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// runnerBDDContext holds the state shared by the steps of one scenario.
type runnerBDDContext struct {
	runner  *Runner
	windows *windowRecorder
	opts    []Option
	app     *recordingApp
	updates int
	runErr  error
}

func (c *runnerBDDContext) reset() {
	*c = runnerBDDContext{}
}

func (c *runnerBDDContext) build() error {
	if c.runner != nil {
		return nil
	}
	runner, err := NewRunner(append([]Option{WithWindowOpener(c.windows.opener())}, c.opts...)...)
	if err != nil {
		return err
	}
	c.runner = runner
	return nil
}

func (c *runnerBDDContext) aRunnerWithAHeadlessWindow() error {
	c.windows = &windowRecorder{}
	return nil
}

func (c *runnerBDDContext) theRunnerStopsAfterFrames(n int) error {
	c.opts = append(c.opts, WithMaxFrames(uint64(n)))
	return nil
}

func (c *runnerBDDContext) iCreateAnApplicationTitledOfBy(title string, width, height int) error {
	if err := c.build(); err != nil {
		return err
	}
	cfg, err := NewWindowConfig(title, width, height)
	if err != nil {
		return err
	}
	_, err = c.runner.CreateApp(func() Application { return &BaseApplication{} }, cfg)
	return err
}

func (c *runnerBDDContext) aRecordingApplication() error {
	if err := c.build(); err != nil {
		return err
	}
	c.app = newRecordingApp()
	_, err := c.runner.CreateApp(func() Application { return c.app }, DefaultWindowConfig())
	return err
}

func (c *runnerBDDContext) aRecordingApplicationThatTerminatesAfterFrame(n int) error {
	if err := c.aRecordingApplication(); err != nil {
		return err
	}
	c.app.terminate = c.runner.Terminate
	c.app.stopAfter = uint64(n)
	return nil
}

func (c *runnerBDDContext) anApplicationThatOnlyCountsUpdates() error {
	if err := c.build(); err != nil {
		return err
	}
	_, err := c.runner.CreateApp(func() Application { return counterApp{updates: &c.updates} }, DefaultWindowConfig())
	return err
}

func (c *runnerBDDContext) theHookFailsOnFrame(hook string, frame int) error {
	if c.app == nil {
		return errors.New("no recording application")
	}
	c.app.failOn[hook] = uint64(frame)
	return nil
}

func (c *runnerBDDContext) terminationIsRequestedBeforeRunning() error {
	if err := c.build(); err != nil {
		return err
	}
	c.runner.Terminate()
	return nil
}

func (c *runnerBDDContext) theRunnerRuns() error {
	c.runErr = c.runner.Run(context.Background())
	return nil
}

func (c *runnerBDDContext) theRunShouldSucceed() error {
	if c.runErr != nil {
		return fmt.Errorf("expected run to succeed, got %w", c.runErr)
	}
	return nil
}

func (c *runnerBDDContext) theRunShouldFailInOnFrame(hook string, frame int) error {
	if !errors.Is(c.runErr, ErrRuntimeHook) {
		return fmt.Errorf("expected a runtime hook error, got %v", c.runErr)
	}
	var hookErr *HookError
	if !errors.As(c.runErr, &hookErr) {
		return fmt.Errorf("expected a HookError, got %v", c.runErr)
	}
	if string(hookErr.Hook) != hook || hookErr.Frame != uint64(frame) {
		return fmt.Errorf("expected %s on frame %d, got %s on frame %d", hook, frame, hookErr.Hook, hookErr.Frame)
	}
	return nil
}

func (c *runnerBDDContext) theWindowTitleShouldBe(title string) error {
	if got := c.runner.Window().Title(); got != title {
		return fmt.Errorf("expected title %q, got %q", title, got)
	}
	return nil
}

func (c *runnerBDDContext) theWindowSizeShouldBeBy(width, height int) error {
	win := c.runner.Window()
	if win.Width() != width || win.Height() != height {
		return fmt.Errorf("expected %dx%d, got %dx%d", width, height, win.Width(), win.Height())
	}
	return nil
}

func (c *runnerBDDContext) theApplicationStateShouldBe(state string) error {
	if got := c.runner.State().String(); got != state {
		return fmt.Errorf("expected state %q, got %q", state, got)
	}
	return nil
}

func (c *runnerBDDContext) framesShouldHaveStarted(n int) error {
	if got := c.runner.FrameIndex(); got != uint64(n) {
		return fmt.Errorf("expected %d frames, got %d", n, got)
	}
	return nil
}

func (c *runnerBDDContext) theHooksShouldHaveBeenCalledInOrder(hooks string) error {
	expected := strings.Split(hooks, ",")
	if !slices.Equal(expected, c.app.calls) {
		return fmt.Errorf("expected calls %v, got %v", expected, c.app.calls)
	}
	return nil
}

func (c *runnerBDDContext) theHookShouldHaveBeenCalledTimes(hook string, n int) error {
	if got := c.app.count(hook); got != n {
		return fmt.Errorf("expected %s to be called %d times, got %d", hook, n, got)
	}
	return nil
}

func (c *runnerBDDContext) updatesShouldHaveBeenCounted(n int) error {
	if c.updates != n {
		return fmt.Errorf("expected %d updates, got %d", n, c.updates)
	}
	return nil
}

// InitializeRunnerScenario wires the runner lifecycle steps.
func InitializeRunnerScenario(ctx *godog.ScenarioContext) {
	testCtx := &runnerBDDContext{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	ctx.Step(`^a runner with a headless window$`, testCtx.aRunnerWithAHeadlessWindow)
	ctx.Step(`^the runner stops after (\d+) frames$`, testCtx.theRunnerStopsAfterFrames)
	ctx.Step(`^I create an application titled "([^"]*)" of (\d+) by (\d+)$`, testCtx.iCreateAnApplicationTitledOfBy)
	ctx.Step(`^a recording application$`, testCtx.aRecordingApplication)
	ctx.Step(`^a recording application that terminates after frame (\d+)$`, testCtx.aRecordingApplicationThatTerminatesAfterFrame)
	ctx.Step(`^an application that only counts updates$`, testCtx.anApplicationThatOnlyCountsUpdates)
	ctx.Step(`^the "([^"]*)" hook fails on frame (\d+)$`, testCtx.theHookFailsOnFrame)
	ctx.Step(`^termination is requested before running$`, testCtx.terminationIsRequestedBeforeRunning)
	ctx.Step(`^the runner runs$`, testCtx.theRunnerRuns)
	ctx.Step(`^the run should succeed$`, testCtx.theRunShouldSucceed)
	ctx.Step(`^the run should fail in "([^"]*)" on frame (\d+)$`, testCtx.theRunShouldFailInOnFrame)
	ctx.Step(`^the window title should be "([^"]*)"$`, testCtx.theWindowTitleShouldBe)
	ctx.Step(`^the window size should be (\d+) by (\d+)$`, testCtx.theWindowSizeShouldBeBy)
	ctx.Step(`^the application state should be "([^"]*)"$`, testCtx.theApplicationStateShouldBe)
	ctx.Step(`^(\d+) frames should have started$`, testCtx.framesShouldHaveStarted)
	ctx.Step(`^the hooks "([^"]*)" should have been called in order$`, testCtx.theHooksShouldHaveBeenCalledInOrder)
	ctx.Step(`^the "([^"]*)" hook should have been called (\d+) times$`, testCtx.theHookShouldHaveBeenCalledTimes)
	ctx.Step(`^(\d+) updates should have been counted$`, testCtx.updatesShouldHaveBeenCounted)
}

// TestRunnerLifecycle runs the BDD tests for the runner lifecycle
func TestRunnerLifecycle(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeRunnerScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/runner_lifecycle.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
