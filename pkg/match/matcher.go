package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll is the include pattern used when none is configured.
const MatchAll = "**"

// Matcher selects which discovered keys are reported.
//
// A key is reported when it matches at least one include pattern, matches no
// exclude pattern and, when ExcludeHidden is set, has no segment starting
// with '.'. Matching never influences which prefixes are listed.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	prefixes      []string
	excludeHidden bool
	all           bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a key must match (at least one).
	// Empty means every key.
	Includes []string

	// Excludes are glob patterns a key must not match (any).
	Excludes []string

	// ExcludeHidden drops keys with dot-prefixed segments.
	// Default: false (hidden keys are reported)
	ExcludeHidden bool
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New creates a Matcher. Patterns are normalized with NormalizePattern.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}

	all := len(includes) == 0
	if all {
		includes = []string{MatchAll}
	}

	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		prefixes:      DerivePrefixes(includes),
		excludeHidden: cfg.ExcludeHidden,
		all:           all && len(excludes) == 0,
	}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		normalized := NormalizePattern(p)
		if !doublestar.ValidatePattern(normalized) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Match reports whether key should be reported.
//
// Keys are matched as-is; object keys are opaque and never normalized.
func (m *Matcher) Match(key string) bool {
	if m.excludeHidden && IsHidden(key) {
		return false
	}
	if m.all {
		return true
	}

	matched := false
	for _, inc := range m.includes {
		if matchPattern(inc, key) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, exc := range m.excludes {
		if matchPattern(exc, key) {
			return false
		}
	}
	return true
}

// CanMatchUnder reports whether any include pattern can match a key that
// starts with root.
func (m *Matcher) CanMatchUnder(root string) bool {
	if root == "" {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(root, p) || strings.HasPrefix(p, root) {
			return true
		}
	}
	return false
}

// IncludePatterns returns the normalized include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

func matchPattern(pattern, key string) bool {
	matched, err := doublestar.Match(pattern, key)
	if err != nil {
		// validated in New
		return false
	}
	return matched
}
