package walker

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for enumeration outcomes.
var (
	// ErrInvalidArgument indicates malformed input such as an empty bucket.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the bucket or starting prefix does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient indicates a listing failure worth retrying: connectivity,
	// throttling or a timeout.
	ErrTransient = errors.New("transient listing failure")

	// ErrUnauthorized indicates the credentials cannot list the bucket.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCancelled indicates the enumeration was stopped by its context.
	ErrCancelled = errors.New("enumeration cancelled")

	// ErrPrefixLimit indicates the configured prefix cap was reached.
	ErrPrefixLimit = errors.New("prefix limit reached")
)

// ErrorKind is the classification of a listing or enumeration error.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidArgument
	KindNotFound
	KindTransient
	KindUnauthorized
	KindCancelled
	KindPrefixLimit
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindUnauthorized:
		return "unauthorized"
	case KindCancelled:
		return "cancelled"
	case KindPrefixLimit:
		return "prefix_limit"
	default:
		return "unknown"
	}
}

// Classify maps err to an ErrorKind.
//
// Errors that match no sentinel are transient: a listing that failed for an
// unknown reason must be retried and then reported, never treated as empty.
// A deadline exceeded is transient; a plain context cancellation is not.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrPrefixLimit):
		return KindPrefixLimit
	default:
		return KindTransient
	}
}

// PrefixError records a prefix that was skipped after its retries ran out.
type PrefixError struct {
	// Prefix is the prefix whose listing failed.
	Prefix string

	// Attempts is the number of listing attempts made.
	Attempts int

	// Err is the last listing error.
	Err error
}

// Error implements the error interface.
func (e *PrefixError) Error() string {
	return fmt.Sprintf("prefix %q failed after %d attempt(s): %v", e.Prefix, e.Attempts, e.Err)
}

// Unwrap returns the last listing error.
func (e *PrefixError) Unwrap() error {
	return e.Err
}
