// Package minio implements the provider interface for S3-compatible stores
// using the MinIO client.
package minio

import "strings"

// Config configures a MinIO provider.
//
// Endpoint may be given as host:port or as a URL; an http:// scheme disables
// TLS, https:// enables it, and a bare host:port uses Secure.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Endpoint is the store address (required), e.g. "localhost:9000".
	Endpoint string

	// Region is sent with requests and used when creating the bucket.
	Region string

	// AccessKeyID and SecretAccessKey are static credentials. Both or neither.
	AccessKeyID     string
	SecretAccessKey string

	// Secure enables TLS when Endpoint carries no scheme.
	Secure bool

	// MaxKeys is the server-side page size used while draining a listing.
	MaxKeys int
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// hostAndTLS splits a configured endpoint into the host:port the client wants
// and whether TLS should be used.
func (c *Config) hostAndTLS() (string, bool) {
	ep := strings.TrimSpace(c.Endpoint)
	lower := strings.ToLower(ep)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return strings.TrimSuffix(ep[len("https://"):], "/"), true
	case strings.HasPrefix(lower, "http://"):
		return strings.TrimSuffix(ep[len("http://"):], "/"), false
	default:
		return strings.TrimSuffix(ep, "/"), c.Secure
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}
