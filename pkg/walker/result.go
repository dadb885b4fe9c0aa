package walker

import "time"

// Status is the outcome of one enumeration.
type Status string

const (
	// StatusComplete means every reachable prefix was listed.
	StatusComplete Status = "complete"

	// StatusPartial means traversal stopped early or skipped prefixes.
	// Keys holds everything discovered; Cause says why.
	StatusPartial Status = "partial"

	// StatusFailed means the enumeration could not run. Keys is empty.
	StatusFailed Status = "failed"
)

// Result is the outcome of Walker.Enumerate.
type Result struct {
	// Bucket and Root echo the enumeration input.
	Bucket string
	Root   string

	// Status distinguishes complete, partial and failed runs.
	Status Status

	// Keys holds every discovered leaf key, sorted and unique.
	Keys []string

	// FailedPrefixes lists prefixes skipped after retries ran out.
	FailedPrefixes []*PrefixError

	// Cause is nil for a complete run. For partial runs it joins every
	// failed prefix and the stop reason, if any.
	Cause error

	// Stopped is why traversal ended before the frontier drained:
	// cancellation, an authorization failure or the prefix cap. Nil otherwise.
	Stopped error

	Stats Stats
}

// Stats holds counters for one enumeration.
type Stats struct {
	// PrefixesListed is the number of prefixes whose listing succeeded.
	PrefixesListed int

	// PrefixesFailed is the number of prefixes skipped after retries.
	PrefixesFailed int

	// Attempts is the total number of listing calls issued, retries included.
	Attempts int

	// Retries is the number of attempts after the first, across all prefixes.
	Retries int

	// Revisits counts directory entries ignored because the prefix was
	// already expanded or queued.
	Revisits int

	// Duration is the wall time of the enumeration.
	Duration time.Duration
}
