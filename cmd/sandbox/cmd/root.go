package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/doodle"
	"github.com/GoCodeAlone/doodle/debugserver"
	"github.com/GoCodeAlone/doodle/feeders"
	"github.com/GoCodeAlone/doodle/logging"
	"github.com/GoCodeAlone/doodle/metrics"
	"github.com/GoCodeAlone/doodle/platform"
	"github.com/GoCodeAlone/doodle/platform/headless"
	"github.com/GoCodeAlone/doodle/platform/terminal"
	"github.com/GoCodeAlone/doodle/scheduler"
	"github.com/GoCodeAlone/doodle/watcher"
)

// Backends accepted by --backend.
const (
	BackendHeadless = "headless"
	BackendTerminal = "terminal"
)

// EnvPrefix prefixes every environment variable the sandbox reads.
const EnvPrefix = "DOODLE"

// ErrUnknownBackend is returned for an unsupported --backend value.
var ErrUnknownBackend = errors.New("unknown window backend")

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("Doodle sandbox v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// Options holds the command line flags.
type Options struct {
	ConfigPath string
	Backend    string
	Title      string
	Width      int
	Height     int
	Frames     uint64
	TargetFPS  float64
	DebugAddr  string
	LogLevel   string
	Stats      string
}

// NewRootCommand creates the root command for the sandbox.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Doodle sandbox - runs the demo application",
		Long: `Doodle sandbox opens a window, runs the demo application's frame loop
until the window is closed or the process is interrupted, then tears it down.

Settings come from an optional YAML, TOML or JSON file, then from DOODLE_*
environment variables, then from flags.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, cfg, opts.Backend, opts.ConfigPath, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (.yaml, .toml or .json)")
	flags.StringVar(&opts.Backend, "backend", BackendHeadless, "window backend: headless or terminal")
	flags.StringVar(&opts.Title, "title", "", "window title")
	flags.IntVar(&opts.Width, "width", 0, "window width")
	flags.IntVar(&opts.Height, "height", 0, "window height")
	flags.Uint64Var(&opts.Frames, "frames", 0, "stop after this many frames (0 runs until closed)")
	flags.Float64Var(&opts.TargetFPS, "fps", 0, "target frame rate (0 is unpaced)")
	flags.StringVar(&opts.DebugAddr, "debug-addr", "", "serve /status, /healthz and /metrics on this address")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.Stats, "stats", "", "cron spec of the periodic stats log (empty disables it)")

	return cmd
}

// loadConfig layers the config file, the environment and changed flags.
func loadConfig(cmd *cobra.Command, opts *Options) (*doodle.FileConfig, error) {
	var sources []doodle.Feeder
	if opts.ConfigPath != "" {
		f, err := feeders.ForFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", doodle.ErrConfiguration, err)
		}
		sources = append(sources, f)
	}
	sources = append(sources, feeders.NewEnvFeeder(EnvPrefix))

	cfg := &doodle.FileConfig{}
	if err := doodle.LoadConfig(cfg, sources...); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		cfg.Window.Title = opts.Title
	}
	if flags.Changed("width") {
		cfg.Window.Width = opts.Width
	}
	if flags.Changed("height") {
		cfg.Window.Height = opts.Height
	}
	if flags.Changed("frames") {
		cfg.Runner.MaxFrames = opts.Frames
	}
	if flags.Changed("fps") {
		cfg.Runner.TargetFPS = opts.TargetFPS
	}
	if flags.Changed("debug-addr") {
		cfg.Debug.Addr = opts.DebugAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if flags.Changed("stats") {
		cfg.Schedule.StatsSpec = opts.Stats
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", doodle.ErrConfiguration, err)
	}
	return cfg, nil
}

// Run builds a runner from cfg, runs the sandbox application on it and
// returns once it has been torn down. configPath, when set, is watched for
// changes.
func Run(ctx context.Context, cfg *doodle.FileConfig, backend, configPath string, out io.Writer) error {
	windowCfg, err := cfg.WindowConfig()
	if err != nil {
		return err
	}
	opener, err := openerFor(backend, out)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", doodle.ErrConfiguration, err)
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.New(nil)
	jobs := scheduler.New(scheduler.WithName("jobs"))
	subsystems := []doodle.Subsystem{collector, jobs}

	if cfg.Debug.Addr != "" {
		subsystems = append(subsystems, debugserver.New(
			debugserver.WithAddr(cfg.Debug.Addr),
			debugserver.WithMetrics(collector.Name(), collector.Handler()),
		))
	}

	watchPaths := slices.Clone(cfg.Watch.Paths)
	if configPath != "" {
		watchPaths = append(watchPaths, configPath)
	}
	if len(watchPaths) > 0 {
		subsystems = append(subsystems, watcher.New(
			watcher.WithPaths(watchPaths...),
			watcher.WithHandler(func(_ context.Context, c watcher.Change) error {
				logger.Warn("Watched file changed, restart to apply", "path", c.Path, "op", c.Op.String())
				return nil
			}),
		))
	}

	runnerOpts, err := cfg.RunnerOptions()
	if err != nil {
		return err
	}
	runnerOpts = append(runnerOpts,
		doodle.WithLogger(logger.Named("runner")),
		doodle.WithWindowOpener(opener),
		doodle.WithSubsystems(subsystems...),
	)
	runner, err := doodle.NewRunner(runnerOpts...)
	if err != nil {
		return err
	}

	if cfg.Schedule.StatsSpec != "" {
		_, err := jobs.ScheduleRecurring("stats", cfg.Schedule.StatsSpec, func(_ context.Context, _ doodle.Frame) error {
			st := runner.Stats()
			logger.Info("Runner stats", "state", st.State.String(), "frame", st.FrameIndex, "fps", st.FPS, "elapsed", st.Elapsed)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %w", doodle.ErrConfiguration, err)
		}
	}

	if _, err := runner.CreateApp(NewSandbox(runner), windowCfg); err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("Quitting", "frames", runner.FramesCompleted())
	return nil
}

func openerFor(backend string, out io.Writer) (platform.Opener, error) {
	switch backend {
	case "", BackendHeadless:
		return headless.Opener(nil), nil
	case BackendTerminal:
		return terminal.Opener(terminal.WithOutput(out), terminal.WithAltScreen()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
