// Package listing adapts storage providers to the walker.Lister contract.
//
// A Client drains delimiter listings page by page so the walker sees every
// direct child of a prefix in one call, tags common prefixes as directories
// and objects as leaves, and translates provider errors into walker error
// kinds. An empty result always means "no children"; any failure to list is
// returned as an error.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

const (
	// DefaultMaxPages bounds the pages drained for a single prefix.
	DefaultMaxPages = 100000

	// DefaultMaxOpen bounds the buckets kept open at once.
	DefaultMaxOpen = 32
)

// Opener returns a lister bound to bucket.
type Opener func(ctx context.Context, bucket string) (provider.DelimiterLister, error)

// Config configures listing behavior.
type Config struct {
	// Delimiter separates key segments.
	// Default: "/"
	Delimiter string

	// MaxKeys is the page size requested from the provider.
	// Zero uses the provider default.
	MaxKeys int

	// MaxPages caps the pages drained per prefix. A listing that needs more
	// pages fails as transient instead of returning a truncated result.
	// Default: 100000
	MaxPages int

	// MaxOpen caps the providers kept open. Past the cap, the least recently
	// used idle provider is closed. Providers in use by a List call are
	// never closed, so the cap can be exceeded while they are busy.
	// Default: 32
	MaxOpen int
}

// Client implements walker.Lister over storage providers.
//
// Client is safe for concurrent use. Providers are opened on first use of a
// bucket, outside the client lock, and cached until evicted or Close.
type Client struct {
	open   Opener
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	listers map[string]*openLister
	tick    uint64
}

// openLister is a cache slot. ready is closed once the open finished and l
// or err is set. refs counts List calls holding the slot.
type openLister struct {
	bucket string
	ready  chan struct{}
	l      provider.DelimiterLister
	err    error
	refs   int
	used   uint64
	closed bool
}

var _ walker.Lister = (*Client)(nil)

// New creates a listing client.
func New(open Opener, cfg Config) *Client {
	if cfg.Delimiter == "" {
		cfg.Delimiter = provider.DefaultDelimiter
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = DefaultMaxOpen
	}
	return &Client{
		open:    open,
		config:  cfg,
		logger:  zap.NewNop(),
		listers: make(map[string]*openLister),
	}
}

// Static returns an Opener that serves a single already-open bucket.
// Other bucket names list as not found.
func Static(bucket string, l provider.DelimiterLister) Opener {
	return func(_ context.Context, name string) (provider.DelimiterLister, error) {
		if name != bucket {
			return nil, fmt.Errorf("bucket %q is not configured: %w", name, provider.ErrBucketNotFound)
		}
		return l, nil
	}
}

// WithLogger sets the logger. Returns the client for method chaining.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// List returns every direct child of prefix in bucket.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]walker.Entry, error) {
	slot, err := c.acquire(ctx, bucket)
	if err != nil {
		return nil, err
	}
	defer c.release(slot)
	l := slot.l

	var entries []walker.Entry
	token := ""
	for page := 1; ; page++ {
		if page > c.config.MaxPages {
			return nil, fmt.Errorf("%w: listing %q exceeded %d pages", walker.ErrTransient, prefix, c.config.MaxPages)
		}

		res, err := l.ListWithDelimiter(ctx, provider.ListWithDelimiterOptions{
			Prefix:            prefix,
			Delimiter:         c.config.Delimiter,
			ContinuationToken: token,
			MaxKeys:           c.config.MaxKeys,
		})
		if err != nil {
			return nil, translate(err)
		}

		for _, obj := range res.Objects {
			entries = append(entries, walker.Leaf(obj.Key))
		}
		for _, p := range res.CommonPrefixes {
			entries = append(entries, walker.Directory(p))
		}

		next, done, err := res.Next(token)
		if err != nil {
			return nil, fmt.Errorf("%w: listing %q: %w", walker.ErrTransient, prefix, err)
		}
		if done {
			break
		}
		token = next
	}

	return entries, nil
}

// acquire returns the slot for bucket with a reference held, opening the
// provider on first use. Only the first caller opens; later callers wait for
// its result. The open runs without c.mu held.
func (c *Client) acquire(ctx context.Context, bucket string) (*openLister, error) {
	c.mu.Lock()
	slot, ok := c.listers[bucket]
	if !ok {
		slot = &openLister{bucket: bucket, ready: make(chan struct{})}
		c.listers[bucket] = slot
	}
	slot.refs++
	c.mu.Unlock()

	if ok {
		select {
		case <-slot.ready:
		case <-ctx.Done():
			c.release(slot)
			return nil, translate(ctx.Err())
		}
	} else {
		c.fill(ctx, bucket, slot)
	}

	if slot.err != nil {
		c.release(slot)
		return nil, c.openError(ctx, bucket, slot.err)
	}
	return slot, nil
}

// fill opens bucket into slot. A failed open is removed from the cache so
// the next call tries again.
func (c *Client) fill(ctx context.Context, bucket string, slot *openLister) {
	l, err := c.open(ctx, bucket)

	c.mu.Lock()
	slot.l, slot.err = l, err
	if err != nil {
		if c.listers[bucket] == slot {
			delete(c.listers, bucket)
		}
	} else {
		c.logger.Debug("opened bucket", zap.String("bucket", bucket))
	}
	close(slot.ready)
	c.mu.Unlock()
}

func (c *Client) openError(ctx context.Context, bucket string, err error) error {
	ctxErr := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	switch {
	case ctxErr && ctx.Err() == nil:
		// Another caller's open was cancelled; this caller may retry.
		return fmt.Errorf("%w: open bucket %q: %w", walker.ErrTransient, bucket, err)
	case ctxErr || isClassified(err):
		return translate(err)
	default:
		return fmt.Errorf("%w: open bucket %q: %w", walker.ErrInvalidArgument, bucket, err)
	}
}

// release drops a reference and closes idle providers past MaxOpen. A slot
// dropped from the cache by Close while its open was in flight is closed by
// its last holder.
func (c *Client) release(slot *openLister) {
	c.mu.Lock()
	slot.refs--
	c.tick++
	slot.used = c.tick
	evicted := c.evictLocked()
	if slot.refs == 0 && slot.l != nil && !slot.closed && c.listers[slot.bucket] != slot {
		slot.closed = true
		if evicted == nil {
			evicted = make(map[string]provider.DelimiterLister)
		}
		evicted[slot.bucket] = slot.l
	}
	c.mu.Unlock()

	for bucket, l := range evicted {
		c.logger.Debug("closing idle bucket", zap.String("bucket", bucket))
		if err := closeLister(l); err != nil {
			c.logger.Warn("failed to close bucket", zap.String("bucket", bucket), zap.Error(err))
		}
	}
}

// evictLocked removes least recently used idle slots until the cache fits
// MaxOpen. Busy and opening slots are skipped.
func (c *Client) evictLocked() map[string]provider.DelimiterLister {
	var evicted map[string]provider.DelimiterLister
	for len(c.listers) > c.config.MaxOpen {
		victim := ""
		var oldest uint64
		for bucket, slot := range c.listers {
			if slot.refs > 0 || slot.l == nil {
				continue
			}
			if victim == "" || slot.used < oldest {
				victim, oldest = bucket, slot.used
			}
		}
		if victim == "" {
			break
		}
		if evicted == nil {
			evicted = make(map[string]provider.DelimiterLister)
		}
		slot := c.listers[victim]
		slot.closed = true
		evicted[victim] = slot.l
		delete(c.listers, victim)
	}
	return evicted
}

// Close closes every opened provider.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for bucket, slot := range c.listers {
		if slot.l != nil {
			slot.closed = true
			if err := closeLister(slot.l); err != nil {
				errs = append(errs, fmt.Errorf("close %q: %w", bucket, err))
			}
		}
		delete(c.listers, bucket)
	}
	return errors.Join(errs...)
}

func closeLister(l provider.DelimiterLister) error {
	if closer, ok := l.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
