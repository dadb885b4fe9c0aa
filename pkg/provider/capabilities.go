package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectPutter can create/overwrite objects.
//
// Only test-data seeding writes to a store.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// BucketCreator can check for and create the provider's bucket.
type BucketCreator interface {
	BucketExists(ctx context.Context) (bool, error)
	CreateBucket(ctx context.Context) error
}
