package minio

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/3leaps/bucketwalk/pkg/provider"
)

// Provider implements provider.Provider on top of minio-go.
type Provider struct {
	client  *minio.Client
	bucket  string
	region  string
	maxKeys int
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.ObjectPutter  = (*Provider)(nil)
	_ provider.BucketCreator = (*Provider)(nil)
)

// New creates a MinIO-backed provider. No request is made until first use.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host, secure := cfg.hostAndTLS()
	opts := &minio.Options{
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.AccessKeyID != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Creds = credentials.NewEnvMinio()
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinio, Bucket: cfg.Bucket, Err: err}
	}

	return &Provider{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		maxKeys: cfg.MaxKeys,
	}, nil
}

// ListWithDelimiter lists the direct children of opts.Prefix.
//
// minio-go pages internally, so the whole listing is returned as a single
// untruncated page. Only the "/" delimiter is supported.
func (p *Provider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if opts.Delimiter != "" && opts.Delimiter != provider.DefaultDelimiter {
		return nil, &provider.ProviderError{
			Op:       "ListWithDelimiter",
			Provider: provider.ProviderMinio,
			Bucket:   p.bucket,
			Key:      opts.Prefix,
			Err:      errors.New("only the \"/\" delimiter is supported"),
		}
	}

	// The channel must be drained or the listing goroutine leaks; cancelling
	// the derived context on return stops it early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh := p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: false,
		MaxKeys:   opts.MaxKeys,
	})

	res := &provider.ListWithDelimiterResult{}
	for obj := range objCh {
		if obj.Err != nil {
			return nil, p.wrapError("ListWithDelimiter", opts.Prefix, obj.Err)
		}
		if isCommonPrefix(obj) {
			res.CommonPrefixes = append(res.CommonPrefixes, obj.Key)
			continue
		}
		res.Objects = append(res.Objects, provider.ObjectSummary{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         strings.Trim(obj.ETag, "\""),
			LastModified: obj.LastModified,
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("ListWithDelimiter", opts.Prefix, err)
	}
	return res, nil
}

// isCommonPrefix distinguishes rolled-up prefixes from directory-marker
// objects: minio-go reports prefixes with only Key set.
func isCommonPrefix(obj minio.ObjectInfo) bool {
	return strings.HasSuffix(obj.Key, provider.DefaultDelimiter) && obj.ETag == "" && obj.LastModified.IsZero()
}

// PutObject uploads an object.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_, err := p.client.PutObject(ctx, p.bucket, key, body, contentLength, minio.PutObjectOptions{})
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// BucketExists reports whether the configured bucket exists.
func (p *Provider) BucketExists(ctx context.Context) (bool, error) {
	ok, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return false, p.wrapError("BucketExists", "", err)
	}
	return ok, nil
}

// CreateBucket creates the configured bucket. An already-owned bucket is not an error.
func (p *Provider) CreateBucket(ctx context.Context) error {
	err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return p.wrapError("CreateBucket", "", err)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

// wrapError converts minio-go errors to provider errors with sentinel causes.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinio,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	if errors.Is(err, context.DeadlineExceeded) {
		wrapped.Err = errors.Join(provider.ErrTimeout, err)
		return wrapped
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case "NoSuchKey", "NotFound":
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case "AccessDenied", "AllAccessDisabled":
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case "SlowDown", "SlowDownRead", "Throttling", "TooManyRequests", "RequestLimitExceeded":
		wrapped.Err = provider.ErrThrottled
		return wrapped
	case "ServiceUnavailable", "InternalError", "XMinioServerNotInitialized", "RequestTimeout":
		wrapped.Err = provider.ErrProviderUnavailable
		return wrapped
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case http.StatusForbidden:
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case http.StatusTooManyRequests:
		wrapped.Err = provider.ErrThrottled
		return wrapped
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		wrapped.Err = provider.ErrProviderUnavailable
		return wrapped
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			wrapped.Err = errors.Join(provider.ErrTimeout, err)
		} else {
			wrapped.Err = errors.Join(provider.ErrProviderUnavailable, err)
		}
	}

	return wrapped
}
