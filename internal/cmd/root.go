// Package cmd implements the bucketwalk command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/internal/server/handlers"
)

const binaryName = "bucketwalk"

// flagBindings maps command line flags onto config keys. Only flags given
// on the command line override configuration.
var flagBindings = map[string]string{
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"provider":        "store.provider",
	"endpoint":        "store.endpoint",
	"region":          "store.region",
	"profile":         "store.profile",
	"root-dir":        "store.root_dir",
	"path-style":      "store.path_style",
	"max-keys":        "store.max_keys",
	"concurrency":     "walk.concurrency",
	"max-attempts":    "walk.max_attempts",
	"initial-backoff": "walk.initial_backoff",
	"max-backoff":     "walk.max_backoff",
	"call-timeout":    "walk.call_timeout",
	"rate-limit":      "walk.rate_limit",
	"max-prefixes":    "walk.max_prefixes",
	"host":            "server.host",
	"port":            "server.port",
	"metrics":         "metrics.enabled",
	"tracing":         "tracing.enabled",
	"otlp-endpoint":   "tracing.endpoint",
}

// app holds state shared by every command of one invocation.
type app struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	logger   *zap.Logger
	shutdown observability.ShutdownFunc
}

// SetVersionInfo records build information for the version command and
// the /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	handlers.SetVersionInfo(version, commit, buildDate)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   binaryName,
		Short: "Breadth-first enumeration of every key in an object store bucket",
		Long: `bucketwalk lists every object key in an S3-compatible bucket by walking
its prefix hierarchy breadth-first, one delimiter listing per prefix.

Transient listing failures are retried with backoff; prefixes that keep
failing are reported instead of silently dropped.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ./bucketwalk.yaml or the user config dir)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")
	pf.String("provider", "", "Store provider: s3, minio or file")
	pf.String("endpoint", "", "Store endpoint URL for S3-compatible stores")
	pf.String("region", "", "Store region")
	pf.String("profile", "", "AWS shared config profile")
	pf.String("root-dir", "", "Store directory for the file provider")
	pf.Bool("path-style", false, "Force path-style bucket addressing")
	pf.Int("max-keys", 0, "Listing page size")
	pf.Bool("tracing", false, "Enable OpenTelemetry tracing")
	pf.String("otlp-endpoint", "", "OTLP gRPC collector endpoint")

	root.AddCommand(
		newEnumerateCmd(a),
		newSeedCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.InitCLILogger(binaryName, false)

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFile(ctx, a.cfgFile, flagOverrides(cmd.Flags()))
	if err != nil {
		return exitError(ExitInvalidArgument, "invalid configuration", err)
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := observability.NewLogger(observability.LogConfig{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return exitError(ExitInvalidArgument, "invalid logging configuration", err)
	}
	observability.CLILogger = logger.Named(binaryName)
	a.logger = observability.CLILogger

	shutdown, err := observability.InitTracing(ctx, observability.TracingOptions{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
	}, a.logger)
	if err != nil {
		return exitError(ExitServiceUnavailable, "tracing setup failed", err)
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(cmd.Context())); err != nil {
			a.logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
	return nil
}

// flagOverrides returns config overrides for flags set on the command line.
func flagOverrides(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagBindings[f.Name]; ok {
			out[key] = f.Value.String()
		}
	})
	return out
}

// addWalkFlags registers walker tuning flags. Unset flags keep the
// configured values.
func addWalkFlags(fs *pflag.FlagSet) {
	fs.Int("concurrency", 0, "Concurrent listing calls (default from config: 1)")
	fs.Int("max-attempts", 0, "Listing attempts per prefix (default from config: 4)")
	fs.Duration("initial-backoff", 0, "First retry delay (default from config: 200ms)")
	fs.Duration("max-backoff", 0, "Retry delay ceiling (default from config: 10s)")
	fs.Duration("call-timeout", 0, "Per-listing timeout (default from config: 30s)")
	fs.Float64("rate-limit", 0, "Maximum listing calls per second, 0 for unlimited")
	fs.Int("max-prefixes", 0, "Stop after expanding this many prefixes, 0 for unlimited")
}
