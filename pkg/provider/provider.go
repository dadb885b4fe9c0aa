// Package provider defines abstractions for cloud object storage listing.
//
// Providers implement a minimal surface area focused on delimiter listing,
// which is all the bucket walker needs. Authentication uses SDK default
// credential chains unless explicit credentials are configured - providers
// should not implement custom auth logic.
package provider

import (
	"time"
)

// Provider is a store adapter bound to a single bucket.
//
// Implementations should:
//   - Use SDK default credential chains (AWS default config) when no explicit
//     credentials are configured
//   - Support pagination via continuation tokens, or return complete pages
//   - Be safe for concurrent use
type Provider interface {
	DelimiterLister

	// Close releases any resources held by the provider.
	Close() error
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time
}

// ProviderType identifies a cloud storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage via the AWS SDK.
	ProviderS3 ProviderType = "s3"

	// ProviderMinio represents S3-compatible storage via the MinIO client.
	ProviderMinio ProviderType = "minio"

	// ProviderFile represents a local directory laid out as <root>/<bucket>/<key>.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType validates a provider name.
func ParseProviderType(s string) (ProviderType, bool) {
	switch ProviderType(s) {
	case ProviderS3, ProviderMinio, ProviderFile:
		return ProviderType(s), true
	default:
		return "", false
	}
}
