// Package walker enumerates every object key in a bucket by breadth-first
// expansion of common prefixes.
//
// A Walker lists the root prefix, records leaf keys and queues sub-prefixes,
// then expands queued prefixes in FIFO order until none remain. Each prefix
// is expanded at most once per run, so a store that reports a prefix under
// itself, or the same prefix under two parents, cannot cause a loop.
//
// Listing failures are never treated as "no children". Transient failures
// are retried with exponential backoff and, once retries run out, the prefix
// is reported in Result.FailedPrefixes while the rest of the tree is still
// walked. Authorization failures and cancellation stop the run and return
// what was found so far as a partial result.
package walker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/3leaps/bucketwalk/pkg/walker"

// Config configures walker behavior.
type Config struct {
	// Concurrency is the number of listing calls in flight.
	// 1 lists one prefix at a time in strict FIFO order.
	// Default: 1
	Concurrency int

	// MaxAttempts is the number of listing attempts per prefix for
	// transient failures. 1 disables retries.
	// Default: 4
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	// Default: 200ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 10s
	MaxBackoff time.Duration

	// BackoffJitter is the randomization factor applied to each delay,
	// between 0 and 1. Zero gives deterministic delays.
	// Default: 0.2
	BackoffJitter float64

	// CallTimeout bounds each listing call. Zero means no per-call timeout.
	// Default: 30s
	CallTimeout time.Duration

	// RateLimit is the maximum listing calls per second.
	// Zero means unlimited.
	// Default: 0
	RateLimit float64

	// MaxPrefixes caps the number of prefixes expanded in one run.
	// Zero means unlimited.
	// Default: 0
	MaxPrefixes int
}

// DefaultConfig returns the default walker configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    1,
		MaxAttempts:    4,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffJitter:  0.2,
		CallTimeout:    30 * time.Second,
		RateLimit:      0,
		MaxPrefixes:    0,
	}
}

// Walker enumerates buckets through a Lister.
//
// A Walker holds no per-run state and is safe for concurrent Enumerate calls.
type Walker struct {
	lister   Lister
	config   Config
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

// New creates a walker.
//
// Zero or negative Concurrency, MaxAttempts, InitialBackoff and MaxBackoff
// fall back to DefaultConfig values.
func New(l Lister, cfg Config) *Walker {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.BackoffJitter < 0 {
		cfg.BackoffJitter = 0
	}
	if cfg.BackoffJitter > 1 {
		cfg.BackoffJitter = 1
	}

	return &Walker{
		lister:   l,
		config:   cfg,
		logger:   zap.NewNop(),
		observer: NopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
}

// WithLogger sets the logger. Returns the walker for method chaining.
func (w *Walker) WithLogger(logger *zap.Logger) *Walker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithObserver sets the event observer. Returns the walker for method chaining.
func (w *Walker) WithObserver(o Observer) *Walker {
	if o != nil {
		w.observer = o
	}
	return w
}

// Config returns the effective configuration.
func (w *Walker) Config() Config {
	return w.config
}

// Enumerate lists every leaf key reachable from root in bucket.
//
// root is the starting prefix; empty means the whole bucket. The returned
// error is non-nil only when Result.Status is StatusFailed, and is the same
// value as Result.Cause. Partial results carry their cause on the result.
func (w *Walker) Enumerate(ctx context.Context, bucket, root string) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(bucket) == "" {
		res := &Result{
			Bucket: bucket,
			Root:   root,
			Status: StatusFailed,
			Cause:  fmt.Errorf("%w: bucket is required", ErrInvalidArgument),
		}
		w.observer.Finished(res)
		return res, res.Cause
	}

	r := newRun(w, bucket, root)
	r.walk(ctx)

	res := r.result(time.Since(start))
	w.observer.Finished(res)

	w.logger.Debug("enumeration finished",
		zap.String("bucket", bucket),
		zap.String("root", root),
		zap.String("status", string(res.Status)),
		zap.Int("keys", len(res.Keys)),
		zap.Int("failed_prefixes", len(res.FailedPrefixes)),
		zap.Duration("duration", res.Stats.Duration),
	)

	if res.Status == StatusFailed {
		return res, res.Cause
	}
	return res, nil
}

// run is the state of one enumeration. Only the coordinator goroutine in
// walk touches frontier, visited, discovered and failed.
type run struct {
	w       *Walker
	bucket  string
	root    string
	limiter *rate.Limiter

	frontier   []string
	queued     map[string]struct{}
	visited    map[string]struct{}
	discovered map[string]struct{}
	failed     []*PrefixError

	// stop ends dispatch; fatal additionally discards discovered keys.
	stop  error
	fatal error

	stats Stats
}

// outcome is what a listing worker reports back to the coordinator.
type outcome struct {
	prefix   string
	entries  []Entry
	attempts int
	elapsed  time.Duration
	err      error
}

func newRun(w *Walker, bucket, root string) *run {
	r := &run{
		w:          w,
		bucket:     bucket,
		root:       root,
		frontier:   []string{root},
		queued:     map[string]struct{}{root: {}},
		visited:    make(map[string]struct{}),
		discovered: make(map[string]struct{}),
	}
	if w.config.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(w.config.RateLimit), 1)
	}
	return r
}

// walk runs the coordinator loop until the frontier is drained or a stop
// condition is reached, and waits for in-flight listings to report.
func (r *run) walk(ctx context.Context) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := r.w.config.Concurrency
	results := make(chan outcome, concurrency)

	var g errgroup.Group
	g.SetLimit(concurrency)

	inflight := 0
	for {
		for r.stop == nil && inflight < concurrency && len(r.frontier) > 0 {
			if err := ctx.Err(); err != nil {
				r.halt(cancelled(err))
				break
			}
			if limit := r.w.config.MaxPrefixes; limit > 0 && len(r.visited) >= limit {
				r.halt(fmt.Errorf("%w: %d prefixes expanded, %d queued", ErrPrefixLimit, len(r.visited), len(r.frontier)))
				break
			}

			prefix := r.frontier[0]
			r.frontier = r.frontier[1:]
			r.visited[prefix] = struct{}{}

			inflight++
			g.Go(func() error {
				results <- r.expand(listCtx, prefix)
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		out := <-results
		inflight--
		r.absorb(ctx, out)
		if r.stop != nil {
			cancel()
		}
	}

	_ = g.Wait()
}

// halt records the first stop condition.
func (r *run) halt(err error) {
	if r.stop == nil {
		r.stop = err
	}
}

// absorb merges one listing outcome into the run state.
func (r *run) absorb(ctx context.Context, out outcome) {
	r.stats.Attempts += out.attempts
	if out.attempts > 1 {
		r.stats.Retries += out.attempts - 1
	}

	if out.err != nil {
		r.absorbError(ctx, out)
		return
	}

	r.stats.PrefixesListed++

	if out.prefix == r.root && r.root != "" && len(out.entries) == 0 {
		r.fatal = fmt.Errorf("%w: prefix %q in bucket %q has no entries", ErrNotFound, r.root, r.bucket)
		r.halt(r.fatal)
		return
	}

	leaves, dirs := 0, 0
	for _, e := range out.entries {
		if e.Key == "" {
			continue
		}
		switch e.Kind {
		case EntryLeaf:
			leaves++
			r.discovered[e.Key] = struct{}{}
		case EntryDirectory:
			dirs++
			if _, ok := r.queued[e.Key]; ok {
				r.stats.Revisits++
				continue
			}
			r.queued[e.Key] = struct{}{}
			r.frontier = append(r.frontier, e.Key)
		}
	}

	r.w.observer.Listed(out.prefix, leaves, dirs, out.elapsed)
	r.w.logger.Debug("listed prefix",
		zap.String("bucket", r.bucket),
		zap.String("prefix", out.prefix),
		zap.Int("leaves", leaves),
		zap.Int("dirs", dirs),
		zap.Int("attempts", out.attempts),
		zap.Duration("elapsed", out.elapsed),
	)
}

func (r *run) absorbError(ctx context.Context, out outcome) {
	// Errors that arrive after the run was stopped are consequences of the
	// stop itself.
	if r.stop != nil {
		return
	}
	if err := ctx.Err(); err != nil {
		r.halt(cancelled(err))
		return
	}

	switch Classify(out.err) {
	case KindInvalidArgument, KindNotFound:
		r.fatal = fmt.Errorf("listing %q: %w", out.prefix, out.err)
		r.halt(r.fatal)
	case KindUnauthorized:
		r.w.logger.Warn("listing unauthorized, aborting enumeration",
			zap.String("bucket", r.bucket),
			zap.String("prefix", out.prefix),
			zap.Error(out.err),
		)
		r.halt(fmt.Errorf("listing %q: %w", out.prefix, out.err))
	default:
		pe := &PrefixError{Prefix: out.prefix, Attempts: out.attempts, Err: out.err}
		r.failed = append(r.failed, pe)
		r.stats.PrefixesFailed++
		r.w.observer.PrefixFailed(out.prefix, out.err)
		r.w.logger.Warn("prefix skipped after retries",
			zap.String("bucket", r.bucket),
			zap.String("prefix", out.prefix),
			zap.Int("attempts", out.attempts),
			zap.Error(out.err),
		)
	}
}

// result builds the final Result from the run state.
func (r *run) result(duration time.Duration) *Result {
	r.stats.Duration = duration
	res := &Result{
		Bucket: r.bucket,
		Root:   r.root,
		Stats:  r.stats,
	}

	if r.fatal != nil {
		res.Status = StatusFailed
		res.Cause = r.fatal
		return res
	}

	res.Keys = make([]string, 0, len(r.discovered))
	for k := range r.discovered {
		res.Keys = append(res.Keys, k)
	}
	sort.Strings(res.Keys)
	res.FailedPrefixes = r.failed

	var causes []error
	for _, pe := range r.failed {
		causes = append(causes, pe)
	}
	if r.stop != nil {
		res.Stopped = r.stop
		causes = append(causes, r.stop)
	}

	if len(causes) == 0 {
		res.Status = StatusComplete
		return res
	}
	res.Status = StatusPartial
	res.Cause = errors.Join(causes...)
	return res
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// expand lists one prefix, retrying transient failures.
func (r *run) expand(ctx context.Context, prefix string) outcome {
	out := outcome{prefix: prefix}
	start := time.Now()

	policy := r.w.retryPolicy(ctx)
	op := func() error {
		out.attempts++
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		entries, err := r.listOnce(ctx, prefix, out.attempts)
		if err == nil {
			out.entries = entries
			return nil
		}
		if ctx.Err() != nil || Classify(err) != KindTransient {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		r.w.observer.Retried(prefix, out.attempts, err, delay)
		r.w.logger.Debug("retrying listing",
			zap.String("bucket", r.bucket),
			zap.String("prefix", prefix),
			zap.Int("attempt", out.attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	out.err = backoff.RetryNotify(op, policy, notify)
	out.elapsed = time.Since(start)
	return out
}

// listOnce issues a single listing call under the per-call timeout.
func (r *run) listOnce(ctx context.Context, prefix string, attempt int) ([]Entry, error) {
	callCtx := ctx
	if timeout := r.w.config.CallTimeout; timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	callCtx, span := r.w.tracer.Start(callCtx, "walker.list",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bucket", r.bucket),
			attribute.String("prefix", prefix),
			attribute.Int("attempt", attempt),
		),
	)
	defer span.End()

	entries, err := r.w.lister.List(callCtx, r.bucket, prefix)
	if err != nil {
		// A per-call timeout is transient as long as the run itself is alive.
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: listing %q timed out after %s: %w", ErrTransient, prefix, r.w.config.CallTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}
