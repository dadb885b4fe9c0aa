// Package seed writes a deterministic test data set into a bucket.
//
// Object i is stored at "<group>/file_<i>", where group is the largest
// multiple of GroupSize not greater than i, and holds i zero bytes. The
// default set is 1000 objects in groups of 100 (0/, 100/, ... 900/).
package seed

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// Defaults reproduce the reference data set.
const (
	DefaultBucket      = "big-bucket"
	DefaultCount       = 1000
	DefaultGroupSize   = 100
	DefaultConcurrency = 8
)

// Target is a store that can create its bucket and accept objects.
type Target interface {
	provider.ObjectPutter
	provider.BucketCreator
}

// Config controls the data set.
type Config struct {
	// Bucket is used for logging only; the target is already bound to it.
	Bucket      string
	Count       int
	GroupSize   int
	Concurrency int
}

// DefaultConfig returns the reference data set configuration.
func DefaultConfig() Config {
	return Config{
		Bucket:      DefaultBucket,
		Count:       DefaultCount,
		GroupSize:   DefaultGroupSize,
		Concurrency: DefaultConcurrency,
	}
}

// Report summarizes a Fill call.
type Report struct {
	BucketCreated bool
	Objects       int
	Bytes         int64
}

// Key returns the key of object i.
func Key(i, groupSize int) string {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	group := i - i%groupSize
	return strconv.Itoa(group) + "/file_" + strconv.Itoa(i)
}

// Keys returns every key Fill writes for cfg, in write order.
func Keys(cfg Config) []string {
	cfg = cfg.withDefaults()
	keys := make([]string, cfg.Count)
	for i := range keys {
		keys[i] = Key(i, cfg.GroupSize)
	}
	return keys
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Bucket == "" {
		c.Bucket = def.Bucket
	}
	if c.Count <= 0 {
		c.Count = def.Count
	}
	if c.GroupSize <= 0 {
		c.GroupSize = def.GroupSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	return c
}

// Fill creates the bucket if needed and writes the data set.
//
// Existing objects with the same keys are overwritten, so Fill is safe to
// repeat.
func Fill(ctx context.Context, target Target, cfg Config, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	report := &Report{}

	exists, err := target.BucketExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if exists {
		logger.Debug("bucket already exists", zap.String("bucket", cfg.Bucket))
	} else {
		if err := target.CreateBucket(ctx); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		report.BucketCreated = true
		logger.Debug("created bucket", zap.String("bucket", cfg.Bucket))
	}

	logger.Debug("filling bucket",
		zap.String("bucket", cfg.Bucket),
		zap.Int("count", cfg.Count),
		zap.Int("group_size", cfg.GroupSize),
	)

	var written, size atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := 0; i < cfg.Count; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			key := Key(i, cfg.GroupSize)
			if err := target.PutObject(gctx, key, bytes.NewReader(make([]byte, i)), int64(i)); err != nil {
				return fmt.Errorf("put %q: %w", key, err)
			}
			written.Add(1)
			size.Add(int64(i))
			return nil
		})
	}
	err = g.Wait()

	report.Objects = int(written.Load())
	report.Bytes = size.Load()
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	logger.Debug("bucket filled", zap.String("bucket", cfg.Bucket), zap.Int("objects", report.Objects))
	return report, nil
}
