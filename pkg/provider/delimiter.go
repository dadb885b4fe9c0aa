package provider

import (
	"context"
	"errors"
)

// DefaultDelimiter separates key segments into prefixes.
const DefaultDelimiter = "/"

// ErrBadContinuation reports a truncated page whose continuation token is
// missing or repeats the token that produced it.
var ErrBadContinuation = errors.New("truncated page without a new continuation token")

// DelimiterLister lists one level of a bucket.
//
// A call returns the objects directly under Prefix and the immediate child
// prefixes, one page at a time. Failures are returned as errors carrying a
// sentinel from this package; an empty page always means the level is empty.
type DelimiterLister interface {
	ListWithDelimiter(ctx context.Context, opts ListWithDelimiterOptions) (*ListWithDelimiterResult, error)
}

// ListWithDelimiterOptions selects one page of one level.
type ListWithDelimiterOptions struct {
	// Prefix is the level to list. Empty lists the bucket root.
	Prefix string

	// Delimiter defaults to DefaultDelimiter.
	Delimiter string

	// ContinuationToken is the token of the previous page, empty for the first.
	ContinuationToken string

	// MaxKeys caps entries per page. Zero uses the provider default.
	MaxKeys int
}

// ListWithDelimiterResult is one page of a level.
type ListWithDelimiterResult struct {
	// Objects are the keys directly under the requested prefix.
	Objects []ObjectSummary

	// CommonPrefixes are the immediate child prefixes, each ending in the delimiter.
	CommonPrefixes []string

	// ContinuationToken requests the next page when IsTruncated is set.
	ContinuationToken string

	IsTruncated bool
}

// Next returns the token for the page after r, which was fetched with prev.
// done is true on the last page.
func (r *ListWithDelimiterResult) Next(prev string) (token string, done bool, err error) {
	if !r.IsTruncated {
		return "", true, nil
	}
	if r.ContinuationToken == "" || r.ContinuationToken == prev {
		return "", false, ErrBadContinuation
	}
	return r.ContinuationToken, false, nil
}
