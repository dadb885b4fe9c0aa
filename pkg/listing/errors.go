package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/3leaps/bucketwalk/pkg/provider"
	"github.com/3leaps/bucketwalk/pkg/walker"
)

// translate maps a provider error to a walker error kind, keeping the
// original error in the chain.
func translate(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch provider.DispositionOf(err) {
	case provider.Missing:
		return fmt.Errorf("%w: %w", walker.ErrNotFound, err)
	case provider.Denied:
		return fmt.Errorf("%w: %w", walker.ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %w", walker.ErrTransient, err)
	}
}

// isClassified reports whether err carries a provider sentinel. Open errors
// without one are configuration problems.
func isClassified(err error) bool {
	return provider.DispositionOf(err) != provider.Unclassified
}
