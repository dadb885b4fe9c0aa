// Package file implements the provider interface over a local directory.
//
// A store root holds one subdirectory per bucket; keys are slash-separated
// paths relative to the bucket directory. Listing follows S3 delimiter
// semantics over the flat key set, so the walker sees the same shape of
// results it would from a real object store.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// DefaultMaxKeys is the default page size for delimiter listings.
const DefaultMaxKeys = 1000

// Provider implements provider.Provider for a bucket directory on local disk.
type Provider struct {
	bucket    string
	bucketDir string
	maxKeys   int
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.ObjectPutter  = (*Provider)(nil)
	_ provider.BucketCreator = (*Provider)(nil)
)

type Config struct {
	// RootDir contains one directory per bucket.
	RootDir string

	// Bucket is the bucket (subdirectory) name.
	Bucket string

	// MaxKeys is the page size. Zero uses DefaultMaxKeys.
	MaxKeys int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.RootDir) == "" {
		return fmt.Errorf("root dir is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	if strings.ContainsAny(c.Bucket, `/\`) || c.Bucket == "." || c.Bucket == ".." {
		return fmt.Errorf("invalid bucket name %q", c.Bucket)
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		bucket:    cfg.Bucket,
		bucketDir: filepath.Join(filepath.Clean(cfg.RootDir), cfg.Bucket),
		maxKeys:   maxKeys,
	}, nil
}

func (p *Provider) Close() error { return nil }

// listEntry is either an object key or a common prefix, sorted together so
// continuation tokens work across both.
type listEntry struct {
	name     string
	isPrefix bool
	size     int64
	info     fs.FileInfo
}

func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderFile, Bucket: p.bucket, Key: opts.Prefix, Err: err}
	}

	st, err := os.Stat(p.bucketDir)
	if err != nil || !st.IsDir() {
		return nil, &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderFile, Bucket: p.bucket, Err: provider.ErrBucketNotFound}
	}

	delimiter := opts.Delimiter
	if delimiter == "" {
		delimiter = provider.DefaultDelimiter
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}

	prefix := strings.TrimPrefix(opts.Prefix, "/")
	keys, err := p.collectKeys(prefix)
	if err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}

	seenPrefixes := map[string]struct{}{}
	var entries []listEntry
	for _, k := range keys {
		if !strings.HasPrefix(k.name, prefix) {
			continue
		}
		rest := k.name[len(prefix):]
		if idx := strings.Index(rest, delimiter); idx >= 0 {
			cp := prefix + rest[:idx+len(delimiter)]
			if _, ok := seenPrefixes[cp]; !ok {
				seenPrefixes[cp] = struct{}{}
				entries = append(entries, listEntry{name: cp, isPrefix: true})
			}
			continue
		}
		entries = append(entries, k)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	start := 0
	if opts.ContinuationToken != "" {
		// Start strictly after the last returned entry.
		start = sort.Search(len(entries), func(i int) bool { return entries[i].name > opts.ContinuationToken })
	}

	end := start + maxKeys
	if end > len(entries) {
		end = len(entries)
	}

	res := &provider.ListWithDelimiterResult{}
	for _, e := range entries[start:end] {
		if e.isPrefix {
			res.CommonPrefixes = append(res.CommonPrefixes, e.name)
			continue
		}
		res.Objects = append(res.Objects, provider.ObjectSummary{Key: e.name, Size: e.size, LastModified: e.info.ModTime()})
	}

	if end < len(entries) {
		res.IsTruncated = true
		res.ContinuationToken = entries[end-1].name
	}
	return res, nil
}

func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = ctx
	_ = contentLength
	full, err := p.fullPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".bucketwalk-put-*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

func (p *Provider) BucketExists(ctx context.Context) (bool, error) {
	_ = ctx
	st, err := os.Stat(p.bucketDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, p.wrapError("BucketExists", "", err)
	}
	return st.IsDir(), nil
}

func (p *Provider) CreateBucket(ctx context.Context) error {
	_ = ctx
	if err := os.MkdirAll(p.bucketDir, 0o755); err != nil {
		return p.wrapError("CreateBucket", "", err)
	}
	return nil
}

func (p *Provider) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(p.bucketDir, filepath.FromSlash(clean)), nil
}

// collectKeys returns every file under the deepest directory implied by prefix.
// Temp files left by interrupted puts are skipped.
func (p *Provider) collectKeys(prefix string) ([]listEntry, error) {
	dirPart := ""
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		dirPart = prefix[:idx+1]
	}
	root, err := p.fullPath(dirPart)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []listEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".bucketwalk-put-") {
			return nil
		}
		rel, err := filepath.Rel(p.bucketDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		keys = append(keys, listEntry{name: filepath.ToSlash(rel), size: info.Size(), info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.bucket, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to provider sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = provider.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}
