package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/internal/config"
	"github.com/3leaps/bucketwalk/internal/observability"
	"github.com/3leaps/bucketwalk/internal/server"
	"github.com/3leaps/bucketwalk/internal/server/handlers"
	"github.com/3leaps/bucketwalk/pkg/listing"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve enumerations over HTTP",
		Long: `Start an HTTP server exposing POST /v1/enumerations, health probes,
/version and Prometheus metrics on /metrics.

Example:
  bucketwalk serve --port 8080 --endpoint http://localhost:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("host", "", "Listen host (default from config: localhost)")
	f.Int("port", 0, "Listen port (default from config: 8080)")
	f.Bool("metrics", true, "Serve /metrics and record walk metrics")
	addWalkFlags(f)
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	cfg := a.cfg

	health := handlers.InitHealthManager(handlers.GetVersionInfo().Version)
	health.RegisterChecker("identity", identityHealthChecker{
		binaryName: binaryName,
		envPrefix:  config.EnvPrefix,
		configName: config.ConfigName,
	})
	health.RegisterChecker("store", storeHealthChecker{provider: cfg.Store.Provider})

	client := listing.New(storeOpener(cfg.Store), listing.Config{MaxKeys: cfg.Store.MaxKeys, MaxOpen: cfg.Store.MaxOpen}).
		WithLogger(a.logger.Named("listing"))
	defer func() { _ = client.Close() }()

	w := walker.New(client, cfg.Walk.WalkerConfig()).WithLogger(a.logger.Named("walker"))

	opts := []server.Option{
		server.WithEnumerator(w),
		server.WithLogger(a.logger.Named("server")),
		server.WithTimeouts(server.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		}),
	}
	if cfg.Metrics.Enabled {
		m := observability.NewMetrics()
		w.WithObserver(m)
		opts = append(opts, server.WithMetrics(m))
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, opts...)
	a.logger.Info("Starting server",
		zap.String("addr", srv.Addr()),
		zap.String("provider", cfg.Store.Provider),
		zap.Bool("metrics", cfg.Metrics.Enabled))

	if err := srv.Run(ctx); err != nil {
		return exitError(ExitFailure, "server failed", err)
	}
	return nil
}

// identityHealthChecker reports a misbuilt binary.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(context.Context) error {
	switch {
	case c.binaryName == "":
		return errors.New("missing binary name")
	case c.envPrefix == "":
		return errors.New("missing env prefix")
	case c.configName == "":
		return errors.New("missing config name")
	}
	return nil
}

// storeHealthChecker fails when the configured provider is unknown.
type storeHealthChecker struct {
	provider string
}

func (c storeHealthChecker) CheckHealth(context.Context) error {
	switch c.provider {
	case "s3", "minio", "file":
		return nil
	}
	return errors.New("unknown store provider " + c.provider)
}
