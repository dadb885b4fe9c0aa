package walker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"invalid", fmt.Errorf("bad: %w", ErrInvalidArgument), KindInvalidArgument},
		{"not found", fmt.Errorf("x: %w", ErrNotFound), KindNotFound},
		{"unauthorized", fmt.Errorf("x: %w", ErrUnauthorized), KindUnauthorized},
		{"transient", fmt.Errorf("x: %w", ErrTransient), KindTransient},
		{"unknown", errors.New("boom"), KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"context canceled", context.Canceled, KindCancelled},
		{"cancelled", fmt.Errorf("%w: %w", ErrCancelled, context.Canceled), KindCancelled},
		{"prefix limit", ErrPrefixLimit, KindPrefixLimit},
		{"joined keeps strongest", errors.Join(&PrefixError{Prefix: "b/", Err: ErrTransient}, ErrUnauthorized), KindUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "cancelled", KindCancelled.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}

func TestPrefixError(t *testing.T) {
	err := &PrefixError{Prefix: "b/", Attempts: 3, Err: ErrTransient}

	assert.Equal(t, `prefix "b/" failed after 3 attempt(s): transient listing failure`, err.Error())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestEntry(t *testing.T) {
	assert.Equal(t, Entry{Kind: EntryLeaf, Key: "a"}, Leaf("a"))
	assert.Equal(t, Entry{Kind: EntryDirectory, Key: "a/"}, Directory("a/"))
	assert.Equal(t, "directory", EntryDirectory.String())
	assert.Equal(t, "leaf", EntryLeaf.String())
}
