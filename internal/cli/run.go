package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/neko-jpg/luminara"
	"github.com/neko-jpg/luminara/internal/demo"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks       int
	Entities    int
	Profile     string // "", "cpu" or "mem"
	ProfilePath string
	MetricsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo simulation",
		Long: `Run the demo particle simulation for a number of ticks.

Each tick walks every stage of the pipeline once. Startup spawns the
particles; later stages move, age and despawn them.

Example:
  luminara run --ticks 600 --entities 10000
  luminara run --profile cpu --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "number of updates to run (default from config)")
	cmd.Flags().IntVar(&opts.Entities, "entities", 1000, "number of particles spawned at startup")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "write a profile (cpu|mem)")
	cmd.Flags().StringVar(&opts.ProfilePath, "profile-path", ".", "directory for profile output")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address")

	return cmd
}

func runDemo(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cmd.Flags().Changed("ticks") {
		cfg.Ticks = opts.Ticks
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	switch opts.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.ProfilePath), profile.NoShutdownHook, profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(opts.ProfilePath), profile.NoShutdownHook, profile.Quiet).Stop()
	default:
		return WrapExitError(ExitCommandError, "invalid profile", fmt.Errorf("unknown profile mode %q", opts.Profile))
	}

	logger := luminara.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	reg := prometheus.NewRegistry()
	metrics := luminara.NewMetrics(reg)

	app := luminara.NewApp(cfg,
		luminara.WithAppLogger(logger),
		luminara.WithAppMetrics(metrics),
		luminara.WithCapacity(opts.Entities),
	)
	if err := app.AddPlugin(demo.New(opts.Entities)); err != nil {
		return WrapExitError(ExitCommandError, "failed to build app", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv, err := startMetricsServer(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Error("metrics server shutdown", "error", err)
			}
		}()
	}

	logger.Info("running", "ticks", cfg.Ticks, "entities", opts.Entities, "workers", cfg.Workers)
	start := time.Now()
	runErr := app.RunTicks(ctx, cfg.Ticks)
	elapsed := time.Since(start)

	writeSummary(cmd.OutOrStdout(), app, elapsed)
	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

func writeSummary(out io.Writer, app *luminara.App, elapsed time.Duration) {
	w := app.World()
	stats, _ := luminara.GetResource[demo.Stats](w)
	fmt.Fprintf(out, "ticks:     %d\n", app.Ticks())
	fmt.Fprintf(out, "spawned:   %d\n", stats.Spawned)
	fmt.Fprintf(out, "despawned: %d\n", stats.Despawned)
	fmt.Fprintf(out, "alive:     %d\n", w.EntityCount())
	fmt.Fprintf(out, "elapsed:   %s\n", elapsed.Round(time.Microsecond))
}
