package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider operations. Adapters wrap SDK failures in a
// ProviderError carrying one of these so callers never parse SDK codes.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderUnavailable indicates the provider service is unavailable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrThrottled indicates the request was rate limited by the provider.
	ErrThrottled = errors.New("request throttled")

	// ErrTimeout indicates a request did not complete within its deadline.
	ErrTimeout = errors.New("request timed out")
)

// ProviderError wraps an adapter failure with the bucket and key or listing
// prefix it concerned.
type ProviderError struct {
	// Op is the operation that failed (e.g., "ListWithDelimiter", "PutObject").
	Op string

	// Provider is the provider type (e.g., "s3").
	Provider ProviderType

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the object key or listing prefix, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsBucketNotFound returns true if the error indicates the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsProviderUnavailable returns true if the error indicates the provider service is unavailable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsTimeout returns true if the error indicates a request timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsRetryable reports whether the error is worth retrying: throttling,
// provider unavailability and timeouts.
func IsRetryable(err error) bool {
	return IsThrottled(err) || IsProviderUnavailable(err) || IsTimeout(err)
}

// Disposition is how a listing caller should treat a provider error.
type Disposition int

const (
	// Unclassified errors carry no provider sentinel.
	Unclassified Disposition = iota

	// Missing means the bucket or prefix does not exist.
	Missing

	// Denied means the credentials cannot perform the operation.
	Denied

	// Retry means a later attempt may succeed.
	Retry
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case Missing:
		return "missing"
	case Denied:
		return "denied"
	case Retry:
		return "retry"
	default:
		return "unclassified"
	}
}

// DispositionOf classifies err. When a chain carries several sentinels,
// Missing wins over Denied and Denied over Retry.
func DispositionOf(err error) Disposition {
	switch {
	case err == nil:
		return Unclassified
	case IsBucketNotFound(err), IsNotFound(err):
		return Missing
	case IsAccessDenied(err), IsInvalidCredentials(err):
		return Denied
	case IsRetryable(err):
		return Retry
	default:
		return Unclassified
	}
}
