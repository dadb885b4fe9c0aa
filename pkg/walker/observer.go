package walker

import "time"

// Observer receives enumeration events.
//
// Retried is called from listing workers and may run concurrently with
// other calls; implementations must be safe for concurrent use.
type Observer interface {
	// Listed is called after a prefix listing succeeds.
	Listed(prefix string, leaves, dirs int, elapsed time.Duration)

	// Retried is called before sleeping ahead of a retry.
	Retried(prefix string, attempt int, err error, delay time.Duration)

	// PrefixFailed is called when a prefix is skipped after its retries ran out.
	PrefixFailed(prefix string, err error)

	// Finished is called once with the final result.
	Finished(res *Result)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) Listed(string, int, int, time.Duration) {}
func (NopObserver) Retried(string, int, error, time.Duration) {}
func (NopObserver) PrefixFailed(string, error) {}
func (NopObserver) Finished(*Result) {}

var _ Observer = NopObserver{}
