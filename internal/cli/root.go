package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/neko-jpg/luminara"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A run failed
	ExitCommandError = 2 // Bad flags or configuration
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	LogFormat  string // "json" | "text"
}

// ValidFormats defines the allowed log formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the luminara CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "luminara",
		Short: "Luminara ECS runtime",
		Long:  "Runs and inspects ECS schedules whose tasks are batched by their declared data access.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && !slices.Contains(ValidFormats, opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))

	return cmd
}

// loadConfig resolves the configuration: defaults, then the config file,
// then LUMINARA_* variables, then global flags.
func (o *RootOptions) loadConfig() (luminara.Config, error) {
	cfg := luminara.DefaultConfig()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = luminara.LoadConfig(o.ConfigPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	return cfg, nil
}
