package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/pkg/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	cfg := seed.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "seed [bucket]",
		Short: "Write a deterministic test data set into a bucket",
		Long: `Create the bucket if it does not exist and write objects named
<group>/file_<i>, each holding i zero bytes.

The defaults write 1000 objects in groups of 100 into big-bucket.

Example:
  bucketwalk seed --endpoint http://localhost:9000
  bucketwalk seed scratch --count 250 --group-size 50 --provider file --root-dir ./data`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cfg.Bucket = args[0]
			}
			return a.runSeed(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Count, "count", cfg.Count, "Number of objects")
	f.IntVar(&cfg.GroupSize, "group-size", cfg.GroupSize, "Objects per top-level prefix")
	f.IntVar(&cfg.Concurrency, "workers", cfg.Concurrency, "Concurrent uploads")
	return cmd
}

func (a *app) runSeed(cmd *cobra.Command, cfg seed.Config) error {
	ctx := cmd.Context()
	if cfg.Count <= 0 || cfg.GroupSize <= 0 {
		return exitError(ExitInvalidArgument, "invalid arguments", fmt.Errorf("count and group size must be positive"))
	}

	p, err := openStore(ctx, a.cfg.Store, cfg.Bucket)
	if err != nil {
		return exitError(ExitInvalidArgument, "failed to open store", err)
	}
	defer func() { _ = p.Close() }()

	target, ok := p.(seed.Target)
	if !ok {
		return exitError(ExitInvalidArgument, "store cannot be seeded", fmt.Errorf("provider %s does not support writes", a.cfg.Store.Provider))
	}

	report, err := seed.Fill(ctx, target, cfg, a.logger.Named("seed"))
	if err != nil {
		if ctx.Err() != nil {
			return exitError(ExitInterrupted, "seeding interrupted", err)
		}
		return exitError(ExitServiceUnavailable, "seeding failed", err)
	}

	a.logger.Info("Seed completed",
		zap.String("bucket", cfg.Bucket),
		zap.Bool("bucket_created", report.BucketCreated),
		zap.Int("objects", report.Objects),
		zap.Int64("bytes", report.Bytes))
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d objects (%d bytes) into %s\n", report.Objects, report.Bytes, cfg.Bucket)
	return nil
}
