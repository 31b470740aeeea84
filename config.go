package luminara

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envWorkers       = "LUMINARA_WORKERS"
	envFailurePolicy = "LUMINARA_FAILURE_POLICY"
	envTaskTimeout   = "LUMINARA_TASK_TIMEOUT"
	envLogLevel      = "LUMINARA_LOG_LEVEL"
	envLogFormat     = "LUMINARA_LOG_FORMAT"
	envTicks         = "LUMINARA_TICKS"
	envMetricsAddr   = "LUMINARA_METRICS_ADDR"
)

// Config holds the settings of an App and its host binary.
type Config struct {
	// Workers bounds the concurrency of one batch.
	Workers int `yaml:"workers"`

	// FailurePolicy is "abort" or "continue".
	FailurePolicy string `yaml:"failure_policy"`

	// TaskTimeout is the longest a batch may run. Zero disables it.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Ticks is the number of updates `luminara run` performs.
	Ticks int `yaml:"ticks"`

	// MetricsAddr, when set, serves /metrics and /healthz on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Workers:       runtime.GOMAXPROCS(0),
		FailurePolicy: FailAbort.String(),
		LogLevel:      "info",
		LogFormat:     "text",
		Ticks:         60,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LUMINARA_* environment variables. Values
// that do not parse are reported and leave the field unchanged.
func (c *Config) ApplyEnv() error {
	var errs []error
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", envWorkers, err))
		}
	}
	if v := os.Getenv(envFailurePolicy); v != "" {
		c.FailurePolicy = v
	}
	if v := os.Getenv(envTaskTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TaskTimeout = d
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", envTaskTimeout, err))
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(envLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv(envTicks); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ticks = n
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", envTicks, err))
		}
	}
	if v := os.Getenv(envMetricsAddr); v != "" {
		c.MetricsAddr = v
	}
	return errors.Join(errs...)
}

// Validate checks every field and returns all problems found.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := ParseFailurePolicy(c.FailurePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.TaskTimeout < 0 {
		errs = append(errs, fmt.Errorf("task_timeout must not be negative, got %s", c.TaskTimeout))
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must not be negative, got %d", c.Ticks))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed failure policy, FailAbort if it does not parse.
func (c Config) Policy() FailurePolicy {
	p, _ := ParseFailurePolicy(c.FailurePolicy)
	return p
}

// ScheduleOptions translates the config into Schedule options.
func (c Config) ScheduleOptions() []Option {
	return []Option{
		WithWorkers(c.Workers),
		WithFailurePolicy(c.Policy()),
		WithTaskTimeout(c.TaskTimeout),
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger creates a structured logger writing to w. format is "json" or
// "text"; unknown levels fall back to info.
func NewLogger(w io.Writer, format, level string) *slog.Logger {
	lvl, _ := parseLogLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
