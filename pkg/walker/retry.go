package walker

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy builds the backoff schedule for one prefix: exponential delays
// from InitialBackoff doubling up to MaxBackoff, at most MaxAttempts-1
// retries, abandoned as soon as ctx is done.
func (w *Walker) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.config.InitialBackoff
	b.MaxInterval = w.config.MaxBackoff
	b.RandomizationFactor = w.config.BackoffJitter
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(0)
	if w.config.MaxAttempts > 1 {
		retries = uint64(w.config.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}
