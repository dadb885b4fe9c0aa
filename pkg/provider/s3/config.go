// Package s3 lists buckets on AWS S3 and S3-compatible stores with the AWS
// SDK v2.
package s3

import (
	"net/url"
	"strings"
)

// Config configures an S3 provider bound to one bucket.
//
// Credentials come from AccessKeyID/SecretAccessKey when both are set and
// from the SDK default chain otherwise (environment, shared files with
// Profile, instance or task roles).
//
// For S3-compatible stores set Endpoint; most of them also need
// ForcePathStyle. Without an Endpoint an empty Region resolves through the
// SDK and then falls back to DefaultAWSRegion.
type Config struct {
	// Bucket is required.
	Bucket string

	Region string

	// Endpoint is an http(s) base URL such as "http://localhost:9000".
	// Leave empty for AWS S3.
	Endpoint string

	// Profile selects a shared config profile.
	Profile string

	// AccessKeyID and SecretAccessKey must be set together.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the URL path instead of the host.
	ForcePathStyle bool

	// MaxKeys is the listing page size. Zero uses DefaultMaxKeys; larger
	// values are clamped to MaxAllowedKeys.
	MaxKeys int
}

const (
	// DefaultMaxKeys is the page size used when none is configured.
	DefaultMaxKeys = 1000

	// MaxAllowedKeys is the largest page S3 returns.
	MaxAllowedKeys = 1000

	// DefaultAWSRegion applies to AWS S3 when nothing else sets a region.
	DefaultAWSRegion = "us-east-1"
)

// Validate checks the configuration without contacting the store.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}

	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "Endpoint", Message: "endpoint must be an http or https URL, got " + c.Endpoint}
		}
	}

	if c.MaxKeys < 0 {
		return &ConfigError{Field: "MaxKeys", Message: "max keys must not be negative"}
	}

	return nil
}

// ConfigError is a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
