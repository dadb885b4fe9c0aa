package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/pkg/jobfile"
	"github.com/3leaps/bucketwalk/pkg/listing"
	"github.com/3leaps/bucketwalk/pkg/match"
	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

type enumerateOptions struct {
	root          string
	jobPath       string
	format        string
	output        string
	includes      []string
	excludes      []string
	excludeHidden bool
}

func newEnumerateCmd(a *app) *cobra.Command {
	opts := &enumerateOptions{}
	cmd := &cobra.Command{
		Use:   "enumerate [bucket]",
		Short: "List every object key in a bucket",
		Long: `List every object key in a bucket by walking its prefixes breadth-first.

Keys are written as JSONL records (or one per line with --format text),
followed by an error record per failed prefix and a summary record.
Every key is reported unless --include, --exclude or --exclude-hidden
narrow the output; filters never change which prefixes are listed.

Exit codes follow the foundry catalog: 0 complete, 3 partial (keys written,
some prefixes lost), invalid arguments, store failure, output write failure
and 130 when interrupted.

Example:
  bucketwalk enumerate big-bucket --endpoint http://localhost:9000
  bucketwalk enumerate big-bucket --root 100/ --format text
  bucketwalk enumerate --job walk.yaml --output keys.jsonl
  bucketwalk enumerate data --provider file --root-dir ./testdata`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEnumerate(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.root, "root", "", "Starting prefix (default: whole bucket)")
	f.StringVarP(&opts.jobPath, "job", "j", "", "Job file (YAML or JSON)")
	f.StringVar(&opts.format, "format", output.FormatJSONL, "Output format: jsonl or text")
	f.StringVarP(&opts.output, "output", "o", "", "Write keys to this file instead of stdout")
	f.StringSliceVar(&opts.includes, "include", nil, "Only report keys matching this glob (repeatable)")
	f.StringSliceVar(&opts.excludes, "exclude", nil, "Do not report keys matching this glob (repeatable)")
	f.BoolVar(&opts.excludeHidden, "exclude-hidden", false, "Do not report keys with dot-prefixed segments")
	addWalkFlags(f)
	return cmd
}

// enumeration is the fully resolved plan for one run.
type enumeration struct {
	bucket  string
	root    string
	walk    walker.Config
	match   match.Config
	format  string
	outPath string
}

func (a *app) resolveEnumeration(cmd *cobra.Command, opts *enumerateOptions, args []string) (*enumeration, error) {
	changed := cmd.Flags().Changed
	flagWalk := a.cfg.Walk.WalkerConfig()

	plan := &enumeration{
		root:    opts.root,
		walk:    flagWalk,
		match:   match.Config{Includes: opts.includes, Excludes: opts.excludes, ExcludeHidden: opts.excludeHidden},
		format:  opts.format,
		outPath: opts.output,
	}
	if len(args) > 0 {
		plan.bucket = args[0]
	}

	if opts.jobPath != "" {
		job, err := jobfile.Load(opts.jobPath)
		if err != nil {
			return nil, err
		}
		applyJobConnection(&a.cfg.Store, job.Connection, changed)

		plan.walk, err = job.WalkerConfig(plan.walk)
		if err != nil {
			return nil, err
		}
		keepWalkFlags(&plan.walk, flagWalk, changed)

		if plan.bucket == "" {
			plan.bucket = job.Connection.Bucket
		}
		if !changed("root") {
			plan.root = job.Connection.Root
		}
		jm := job.MatcherConfig()
		plan.match.Includes = append(jm.Includes, plan.match.Includes...)
		plan.match.Excludes = append(jm.Excludes, plan.match.Excludes...)
		plan.match.ExcludeHidden = plan.match.ExcludeHidden || jm.ExcludeHidden
		if !changed("format") {
			plan.format = job.Output.Format
		}
		if !changed("output") {
			plan.outPath = job.Output.OutputPath()
		}
	}

	if plan.bucket == "" {
		return nil, fmt.Errorf("bucket is required (argument or job file)")
	}
	return plan, nil
}

func keepWalkFlags(dst *walker.Config, src walker.Config, changed func(string) bool) {
	if changed("concurrency") {
		dst.Concurrency = src.Concurrency
	}
	if changed("max-attempts") {
		dst.MaxAttempts = src.MaxAttempts
	}
	if changed("initial-backoff") {
		dst.InitialBackoff = src.InitialBackoff
	}
	if changed("max-backoff") {
		dst.MaxBackoff = src.MaxBackoff
	}
	if changed("call-timeout") {
		dst.CallTimeout = src.CallTimeout
	}
	if changed("rate-limit") {
		dst.RateLimit = src.RateLimit
	}
	if changed("max-prefixes") {
		dst.MaxPrefixes = src.MaxPrefixes
	}
}

func (a *app) runEnumerate(cmd *cobra.Command, opts *enumerateOptions, args []string) error {
	ctx := cmd.Context()

	plan, err := a.resolveEnumeration(cmd, opts, args)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return exitError(ExitJobNotFound, "job file not found", err)
		}
		return exitError(ExitInvalidArgument, "invalid arguments", err)
	}

	matcher, err := match.New(plan.match)
	if err != nil {
		return exitError(ExitInvalidArgument, "invalid match patterns", err)
	}
	if !matcher.CanMatchUnder(plan.root) {
		a.logger.Warn("no include pattern can match under root; no keys will be reported",
			zap.String("root", plan.root),
			zap.Strings("includes", matcher.IncludePatterns()))
	}

	var out io.Writer = cmd.OutOrStdout()
	if plan.outPath != "" {
		f, err := os.Create(plan.outPath)
		if err != nil {
			return exitError(ExitOutputFailure, "failed to create output", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	runID := uuid.NewString()
	writer, err := output.New(plan.format, out, cmd.ErrOrStderr(), runID, a.cfg.Store.Provider)
	if err != nil {
		return exitError(ExitInvalidArgument, "invalid output format", err)
	}
	defer func() { _ = writer.Close() }()

	client := listing.New(storeOpener(a.cfg.Store), listing.Config{MaxKeys: a.cfg.Store.MaxKeys}).
		WithLogger(a.logger.Named("listing"))
	defer func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	w := walker.New(client, plan.walk).WithLogger(a.logger.Named("walker"))

	a.logger.Info("Starting enumeration",
		zap.String("run_id", runID),
		zap.String("provider", a.cfg.Store.Provider),
		zap.String("bucket", plan.bucket),
		zap.String("root", plan.root),
		zap.Int("concurrency", w.Config().Concurrency))

	res, _ := w.Enumerate(ctx, plan.bucket, plan.root)

	// Report even when interrupted.
	summary, err := output.Emit(context.WithoutCancel(ctx), writer, res, matcher)
	if err != nil {
		return exitError(ExitOutputFailure, "failed to write output", err)
	}

	a.logger.Info("Enumeration finished",
		zap.String("run_id", runID),
		zap.String("status", string(res.Status)),
		zap.Int("keys_found", summary.KeysFound),
		zap.Int("keys_emitted", summary.KeysEmitted),
		zap.Int("failed_prefixes", len(res.FailedPrefixes)),
		zap.Duration("duration", res.Stats.Duration))

	return resultError(res)
}
