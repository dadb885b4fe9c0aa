package walker

import "context"

// EntryKind tags a listing entry as a leaf object or a sub-prefix.
type EntryKind int

const (
	// EntryLeaf is a terminal object key.
	EntryLeaf EntryKind = iota

	// EntryDirectory is a common prefix that can be expanded further.
	EntryDirectory
)

// String returns the lowercase kind name.
func (k EntryKind) String() string {
	switch k {
	case EntryLeaf:
		return "leaf"
	case EntryDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is one direct child returned by a listing call.
//
// Leaf entries carry the full object key; directory entries carry the full
// prefix, including its trailing delimiter.
type Entry struct {
	Kind EntryKind
	Key  string
}

// Leaf returns a leaf entry for key.
func Leaf(key string) Entry {
	return Entry{Kind: EntryLeaf, Key: key}
}

// Directory returns a directory entry for prefix.
func Directory(prefix string) Entry {
	return Entry{Kind: EntryDirectory, Key: prefix}
}

// Lister lists the direct children of a prefix.
//
// List must return every direct child of prefix in bucket, with pagination
// already drained. Listing the same prefix twice against an unchanged store
// must return the same entries. Failures must be returned as errors that
// Classify can recognize, never as an empty slice: an empty slice means the
// prefix has no children.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) ([]Entry, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context, bucket, prefix string) ([]Entry, error)

// List calls f.
func (f ListerFunc) List(ctx context.Context, bucket, prefix string) ([]Entry, error) {
	return f(ctx, bucket, prefix)
}
